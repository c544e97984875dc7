package options

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers for environment variable testing
func setEnvVar(t *testing.T, key, value string) func() {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("Failed to set environment variable: %v", err)
	}

	return func() {
		if err := os.Unsetenv(key); err != nil {
			t.Logf("Failed to unset environment variable: %v", err)
		}
	}
}

func unsetEnvVar(t *testing.T, key string) {
	t.Helper()
	if err := os.Unsetenv(key); err != nil {
		t.Logf("Failed to unset environment variable: %v", err)
	}
}

func TestEnvStringOrDefault(t *testing.T) {
	t.Run("returns environment value when set", func(t *testing.T) {
		defer setEnvVar(t, "TEST_VAR", "env_value")()

		assert.Equal(t, "env_value", envStringOrDefault("TEST_VAR", "default_value"))
	})

	t.Run("returns default when environment variable not set", func(t *testing.T) {
		unsetEnvVar(t, "TEST_VAR")

		assert.Equal(t, "default_value", envStringOrDefault("TEST_VAR", "default_value"))
	})

	t.Run("returns default when environment variable is empty", func(t *testing.T) {
		defer setEnvVar(t, "TEST_VAR", "")()

		assert.Equal(t, "default_value", envStringOrDefault("TEST_VAR", "default_value"))
	})
}

func TestEnvDurationOrDefault(t *testing.T) {
	t.Run("parses valid duration", func(t *testing.T) {
		defer setEnvVar(t, "TEST_DURATION", "45m")()

		v, err := envDurationOrDefault("TEST_DURATION", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 45*time.Minute, v)
	})

	t.Run("returns default when unset", func(t *testing.T) {
		unsetEnvVar(t, "TEST_DURATION")

		v, err := envDurationOrDefault("TEST_DURATION", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, v)
	})

	t.Run("reports invalid duration", func(t *testing.T) {
		defer setEnvVar(t, "TEST_DURATION", "not_a_duration")()

		_, err := envDurationOrDefault("TEST_DURATION", time.Hour)
		var verr ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "TEST_DURATION", verr.Field)
	})
}

func TestEnvBoolOrDefault(t *testing.T) {
	t.Run("parses valid bool", func(t *testing.T) {
		defer setEnvVar(t, "TEST_BOOL", "false")()

		v, err := envBoolOrDefault("TEST_BOOL", true)
		require.NoError(t, err)
		assert.False(t, v)
	})

	t.Run("reports invalid bool", func(t *testing.T) {
		defer setEnvVar(t, "TEST_BOOL", "not_a_bool")()

		_, err := envBoolOrDefault("TEST_BOOL", true)
		var verr ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "TEST_BOOL", verr.Field)
	})
}

func TestEnvIntOrDefault(t *testing.T) {
	t.Run("parses valid int", func(t *testing.T) {
		defer setEnvVar(t, "TEST_INT", "8")()

		v, err := envIntOrDefault("TEST_INT", 4)
		require.NoError(t, err)
		assert.Equal(t, 8, v)
	})

	t.Run("returns default when unset", func(t *testing.T) {
		unsetEnvVar(t, "TEST_INT")

		v, err := envIntOrDefault("TEST_INT", 4)
		require.NoError(t, err)
		assert.Equal(t, 4, v)
	})

	t.Run("reports invalid int", func(t *testing.T) {
		defer setEnvVar(t, "TEST_INT", "not_an_int")()

		_, err := envIntOrDefault("TEST_INT", 4)
		var verr ValidationError
		require.True(t, errors.As(err, &verr))
	})
}

func TestEnvLogLevelOrDefault(t *testing.T) {
	t.Run("accepts valid level", func(t *testing.T) {
		defer setEnvVar(t, "TEST_LEVEL", "debug")()

		v, err := envLogLevelOrDefault("TEST_LEVEL", zerolog.InfoLevel)
		require.NoError(t, err)
		assert.Equal(t, "debug", v)
	})

	t.Run("rejects invalid level", func(t *testing.T) {
		defer setEnvVar(t, "TEST_LEVEL", "shouting")()

		_, err := envLogLevelOrDefault("TEST_LEVEL", zerolog.InfoLevel)
		var verr ValidationError
		require.True(t, errors.As(err, &verr))
	})
}

func TestValidateRequired(t *testing.T) {
	filled := "value"
	assert.NoError(t, validateRequired("field", &filled))

	empty := ""
	err := validateRequired("repo", &empty)
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "repo", verr.Field)
	assert.Contains(t, verr.Error(), "repo")
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{Field: "db-pool-size", Message: "must be positive"}
	assert.Equal(t, "configuration error for db-pool-size: must be positive", err.Error())
}
