package async

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// File is an open file handle whose operations suspend the calling fiber
// while the OS call runs on the worker pool.
type File struct {
	loop *Loop
	f    *os.File
}

// Name returns the path the file was opened with.
func (f *File) Name() string { return f.f.Name() }

// Open opens path with the given flags and permission bits.
func (l *Loop) Open(ctx context.Context, path string, flag int, perm os.FileMode) (*File, error) {
	var f *os.File
	err := l.Do(ctx, func() (e error) {
		f, e = os.OpenFile(path, flag, perm)
		return e
	})
	if err != nil {
		return nil, err
	}
	return &File{loop: l, f: f}, nil
}

// Close closes the file.
func (f *File) Close(ctx context.Context) error {
	return f.loop.Do(ctx, func() error { return f.f.Close() })
}

// ReadAt fills the buffer list from the given offset, returning the total
// byte count. A short read past end of file is not an error; io.EOF is
// reported only when nothing was read.
func (f *File) ReadAt(ctx context.Context, bufs [][]byte, off int64) (int64, error) {
	var total int64
	err := f.loop.Do(ctx, func() error {
		for _, buf := range bufs {
			n, err := f.f.ReadAt(buf, off+total)
			total += int64(n)
			if err == io.EOF {
				if total > 0 {
					return nil
				}
				return io.EOF
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	return total, err
}

// WriteAt writes the buffer list at the given offset and returns the total
// byte count written.
func (f *File) WriteAt(ctx context.Context, bufs [][]byte, off int64) (int64, error) {
	var total int64
	err := f.loop.Do(ctx, func() error {
		for _, buf := range bufs {
			n, err := f.f.WriteAt(buf, off+total)
			total += int64(n)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return total, err
}

// Fsync flushes file data and metadata to stable storage.
func (f *File) Fsync(ctx context.Context) error {
	return f.loop.Do(ctx, func() error { return f.f.Sync() })
}

// Fdatasync flushes file data to stable storage. Go's runtime does not
// expose a portable data-only sync, so this is a full sync.
func (f *File) Fdatasync(ctx context.Context) error {
	return f.loop.Do(ctx, func() error { return f.f.Sync() })
}

// Ftruncate changes the file's size.
func (f *File) Ftruncate(ctx context.Context, size int64) error {
	return f.loop.Do(ctx, func() error { return f.f.Truncate(size) })
}

// Fstat returns file metadata.
func (f *File) Fstat(ctx context.Context) (os.FileInfo, error) {
	var info os.FileInfo
	err := f.loop.Do(ctx, func() (e error) {
		info, e = f.f.Stat()
		return e
	})
	return info, err
}

// FstatSize returns only the file's size, avoiding a copy of the whole stat
// buffer at the call site.
func (f *File) FstatSize(ctx context.Context) (int64, error) {
	info, err := f.Fstat(ctx)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Unlink removes path.
func (l *Loop) Unlink(ctx context.Context, path string) error {
	return l.Do(ctx, func() error { return os.Remove(path) })
}

// Link creates newpath as a hard link to path.
func (l *Loop) Link(ctx context.Context, path, newpath string) error {
	return l.Do(ctx, func() error { return os.Link(path, newpath) })
}

// Mkdir creates a single directory.
func (l *Loop) Mkdir(ctx context.Context, path string, perm os.FileMode) error {
	return l.Do(ctx, func() error { return os.Mkdir(path, perm) })
}

// MkdirAll creates path and any missing parents.
func (l *Loop) MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	return l.Do(ctx, func() error { return os.MkdirAll(path, perm) })
}

// MkdirAllParent creates the parent directory of path and any missing
// ancestors, for callers about to create path itself.
func (l *Loop) MkdirAllParent(ctx context.Context, path string, perm os.FileMode) error {
	return l.MkdirAll(ctx, filepath.Dir(path), perm)
}

// StatMode returns the file mode of path.
func (l *Loop) StatMode(ctx context.Context, path string) (fs.FileMode, error) {
	var mode fs.FileMode
	err := l.Do(ctx, func() error {
		info, e := os.Stat(path)
		if e != nil {
			return e
		}
		mode = info.Mode()
		return nil
	})
	return mode, err
}

// TempName returns a fresh pathname under dir with the given prefix. The
// name is random; the file is not created.
func (l *Loop) TempName(ctx context.Context, dir, prefix string) (string, error) {
	var buf [8]byte
	if err := l.Random(ctx, buf[:]); err != nil {
		return "", err
	}
	return filepath.Join(dir, prefix+hex.EncodeToString(buf[:])), nil
}

// Sleep suspends the calling fiber for at least d.
func (l *Loop) Sleep(d time.Duration) {
	f := l.mustCurrent()
	timer := time.AfterFunc(d, func() { l.Wakeup(f) })
	defer timer.Stop()
	l.park()
}

// Random fills buf from the cryptographic random source.
func (l *Loop) Random(ctx context.Context, buf []byte) error {
	return l.Do(ctx, func() error {
		_, err := io.ReadFull(rand.Reader, buf)
		return err
	})
}
