package server

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenBroadcastUDP binds a UDP socket on port with SO_REUSEADDR (so a
// yielding server and its successor can bind the same port back to back
// without waiting out the OS's linger timeout) and SO_BROADCAST (required
// on some platforms before a socket may send to 255.255.255.255).
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

// broadcastAddr is the LAN broadcast address used for discovery and
// beaconing, on the shared protocol port.
func broadcastAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4bcast, Port: port}
}
