//go:build !linux

package ipc

import (
	"fmt"
	"net"
)

type PeerCred struct {
	PID int
	UID int
	GID int
}

func GetPeerCred(conn *net.UnixConn) (PeerCred, error) {
	return PeerCred{UID: -1, GID: -1}, fmt.Errorf("peercred not supported on this platform")
}
