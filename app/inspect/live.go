package inspect

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/google/gopacket"

	"github.com/BIwashi/pnrtgen/pkg/cli"
	"github.com/BIwashi/pnrtgen/pkg/pcap"
	"github.com/BIwashi/pnrtgen/pkg/profinet"
)

// ErrLiveCaptureUnsupported is returned by --interface on platforms without
// AF_PACKET sockets.
var ErrLiveCaptureUnsupported = errors.New("live capture is only supported on linux")

type liveHandle interface {
	gopacket.PacketDataSource
	Close()
}

type liveResult struct {
	pkt *profinet.Packet
	err error
}

// inspectLive prints PROFINET frames from a network interface. Reads block
// in the kernel, so they run in their own goroutine and the loop selects on
// the context.
func (s *inspector) inspectLive(ctx context.Context, input cli.Input, p printer) error {
	handle, err := s.openLive(s.iface)
	if err != nil {
		return err
	}
	defer handle.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reader := pcap.NewLiveReader(handle)
	results := make(chan liveResult)
	go func() {
		defer close(results)
		for {
			pkt, err := reader.ReadNext()
			select {
			case results <- liveResult{pkt: pkt, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	input.Logger.Info("Capturing PROFINET frames", "interface", s.iface, "count", s.count)

	frames := 0
	done := func(reason string) error {
		input.Logger.Info("Capture stopped",
			"interface", s.iface,
			"reason", reason,
			"profinet_frames", frames,
		)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return done("interrupted")
		case r, ok := <-results:
			if !ok || errors.Is(r.err, io.EOF) {
				return done("source closed")
			}
			if r.err != nil {
				return errors.Wrapf(r.err, "failed to read from interface %s", s.iface)
			}
			if err := p.print(r.pkt); err != nil {
				return err
			}
			frames++
			if s.count > 0 && frames >= s.count {
				return done("count reached")
			}
		}
	}
}
