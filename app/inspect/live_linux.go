//go:build linux

package inspect

import (
	"github.com/cockroachdb/errors"
	"github.com/google/gopacket/pcapgo"
	"golang.org/x/net/bpf"

	"github.com/BIwashi/pnrtgen/pkg/pcap"
	"github.com/BIwashi/pnrtgen/pkg/profinet"
)

// profinetFilter accepts untagged frames with EtherType 0x8892.
var profinetFilter = []bpf.Instruction{
	bpf.LoadAbsolute{Off: 12, Size: 2},
	bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(profinet.EtherTypeProfinet), SkipFalse: 1},
	bpf.RetConstant{Val: pcap.DefaultSnapLen},
	bpf.RetConstant{Val: 0},
}

func openInterface(name string) (liveHandle, error) {
	h, err := pcapgo.NewEthernetHandle(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open interface %s", name)
	}

	filter, err := bpf.Assemble(profinetFilter)
	if err != nil {
		h.Close()
		return nil, errors.Wrap(err, "failed to assemble capture filter")
	}
	if err := h.SetBPF(filter); err != nil {
		h.Close()
		return nil, errors.Wrapf(err, "failed to attach capture filter to %s", name)
	}
	if err := h.SetPromiscuous(true); err != nil {
		h.Close()
		return nil, errors.Wrapf(err, "failed to enable promiscuous mode on %s", name)
	}
	return h, nil
}
