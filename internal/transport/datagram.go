package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"

	"github.com/cheildo/nexus-rendezvous/internal/matchmaking"
)

// maxDatagramSize covers any probe a client could reasonably send; bytes
// past the identity are ignored anyway.
const maxDatagramSize = 1500

// ProbeHandler is the part of the coordinator the probe channel drives.
type ProbeHandler interface {
	OnProbe(ctx context.Context, id string, addr netip.AddrPort) error
}

// DatagramServer reads probe datagrams and reports each sender's address.
type DatagramServer struct {
	handler ProbeHandler
}

func NewDatagramServer(handler ProbeHandler) *DatagramServer {
	return &DatagramServer{handler: handler}
}

// ParseProbe extracts the identity from a probe datagram. Datagrams shorter
// than an identity are rejected; trailing bytes are ignored.
func ParseProbe(b []byte) (string, bool) {
	if len(b) < matchmaking.IDLength {
		return "", false
	}
	return string(b[:matchmaking.IDLength]), true
}

// Serve reads from conn until ctx is done. Nothing is ever written back.
func (s *DatagramServer) Serve(ctx context.Context, conn *net.UDPConn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	slog.Info("Probe channel listening", "address", conn.LocalAddr().String())
	buf := make([]byte, maxDatagramSize)
	for {
		n, src, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			slog.Error("UDP read error", "error", err)
			continue
		}

		id, ok := ParseProbe(buf[:n])
		if !ok {
			continue
		}

		addr := netip.AddrPortFrom(src.Addr().Unmap(), src.Port())
		if err := s.handler.OnProbe(ctx, id, addr); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("Could not record probe", "playerID", id, "address", addr.String(), "error", err)
		}
	}
}
