package node

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenBroadcastUDP binds the discovery socket to the shared protocol port
// with SO_REUSEADDR (so it can coexist with a server's own UDP worker
// bound to the same port in the same process, which self-hosting requires)
// and SO_BROADCAST. Mirrors the server package's socket setup exactly,
// since both sides speak on the same broadcast domain and port.
func listenBroadcastUDP(port int) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var opErr error
			err := c.Control(func(fd uintptr) {
				if opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); opErr != nil {
					return
				}
				opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
			})
			if err != nil {
				return err
			}
			return opErr
		},
	}

	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}

func broadcastAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4bcast, Port: port}
}
