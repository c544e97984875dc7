package async

import (
	"context"
	"net"
	"os/exec"
)

// LookupHost resolves host to addresses on the worker pool. The resolver can
// block on the network, which must never happen on the loop.
func (l *Loop) LookupHost(ctx context.Context, host string) ([]string, error) {
	var addrs []string
	err := l.Do(ctx, func() (e error) {
		addrs, e = net.DefaultResolver.LookupHost(ctx, host)
		return e
	})
	return addrs, err
}

// Connect opens a stream connection to addr.
func (l *Loop) Connect(ctx context.Context, network, addr string) (net.Conn, error) {
	var conn net.Conn
	err := l.Do(ctx, func() (e error) {
		conn, e = net.Dial(network, addr)
		return e
	})
	return conn, err
}

// WaitExit suspends the calling fiber until the started command exits and
// returns its exit status error, if any.
func (l *Loop) WaitExit(ctx context.Context, cmd *exec.Cmd) error {
	return l.Do(ctx, cmd.Wait)
}
