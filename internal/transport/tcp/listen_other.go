//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package tcp

import (
	"context"
	"net"
)

func listen(ctx context.Context, addr string, _ int) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", addr)
}
