package profinet

import (
	"net"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Packet is a decoded Ethernet frame with EtherType 0x8892.
type Packet struct {
	// Timestamp is the capture time; zero when decoded from raw bytes.
	Timestamp time.Time
	SrcMAC    net.HardwareAddr
	DstMAC    net.HardwareAddr
	RT        RTHeader
	UserData  []byte
	Length    int

	// DCP is set for DCP frame IDs whose PDU decoded cleanly, DCPErr otherwise.
	DCP    *DCPPacket
	DCPErr error
}

func (p *Packet) Class() FrameClass {
	return p.RT.FrameID.Class()
}

// Frame returns the encodable form of the packet.
func (p *Packet) Frame() *Frame {
	return &Frame{
		SrcMAC:         p.SrcMAC,
		DstMAC:         p.DstMAC,
		FrameID:        p.RT.FrameID,
		CycleCounter:   p.RT.CycleCounter,
		DataStatus:     p.RT.DataStatus,
		TransferStatus: p.RT.TransferStatus,
		UserData:       p.UserData,
	}
}

// Decode splits a raw Ethernet frame into its PROFINET fields.
func Decode(data []byte) (*Packet, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)

	ethLayer := packet.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		if errLayer := packet.ErrorLayer(); errLayer != nil {
			return nil, errors.Wrap(errLayer.Error(), "decode ethernet header")
		}
		return nil, errors.New("no ethernet layer")
	}
	eth := ethLayer.(*layers.Ethernet)
	if eth.EthernetType != EtherTypeProfinet {
		return nil, errors.Wrapf(ErrNotProfinet, "ethertype 0x%04X", uint16(eth.EthernetType))
	}

	rtLayer := packet.Layer(LayerTypeProfinetRT)
	if rtLayer == nil {
		if errLayer := packet.ErrorLayer(); errLayer != nil {
			return nil, errors.Wrap(errLayer.Error(), "decode rt header")
		}
		return nil, errors.Wrap(ErrPacketTooShort, "no rt header")
	}
	rt := rtLayer.(*RTHeader)

	p := &Packet{
		SrcMAC:   append(net.HardwareAddr(nil), eth.SrcMAC...),
		DstMAC:   append(net.HardwareAddr(nil), eth.DstMAC...),
		RT:       *rt,
		UserData: append([]byte{}, rt.LayerPayload()...),
		Length:   len(data),
	}
	if p.Class().IsDCP() {
		p.DCP, p.DCPErr = DecodeDCP(eth.Payload)
	}
	return p, nil
}
