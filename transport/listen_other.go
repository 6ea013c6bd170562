//go:build !linux

package transport

import "net"

// Listen opens a UDP socket bound to addr. SO_REUSEPORT is a Linux-specific
// option; on other platforms Listen falls back to a plain bind, so rebind
// on those platforms briefly loses the port instead of handing it off.
func Listen(network, addr string) (Socket, error) {
	udpAddr, err := net.ResolveUDPAddr(network, addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP(network, udpAddr)
	if err != nil {
		return nil, err
	}
	return New(conn)
}
