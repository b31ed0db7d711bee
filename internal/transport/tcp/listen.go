package tcp

import (
	"context"
	"net"
)

// DefaultBacklog is the listen queue length used when none is configured.
const DefaultBacklog = 500

// Listen opens a TCP listener on addr. On unix platforms the socket is
// created by hand so that backlog is passed to listen(2); elsewhere the
// OS default is used.
func Listen(ctx context.Context, addr string, backlog int) (net.Listener, error) {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return listen(ctx, addr, backlog)
}
