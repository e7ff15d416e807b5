package profinet

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// EtherTypeProfinet is the EtherType of all PROFINET RT/DCP frames.
	EtherTypeProfinet layers.EthernetType = 0x8892

	EthernetHeaderLen = 14
	RTHeaderLen       = 6
)

// LayerTypeProfinetRT is the gopacket layer decoded after an Ethernet header
// with EtherType 0x8892.
var LayerTypeProfinetRT = gopacket.RegisterLayerType(2892, gopacket.LayerTypeMetadata{
	Name:    "ProfinetRT",
	Decoder: gopacket.DecodeFunc(decodeProfinetRT),
})

func init() {
	layers.EthernetTypeMetadata[EtherTypeProfinet] = layers.EnumMetadata{
		DecodeWith: gopacket.DecodeFunc(decodeProfinetRT),
		Name:       "ProfinetRT",
		LayerType:  LayerTypeProfinetRT,
	}
}

// RTHeader is the fixed part of a simplified PROFINET RT payload. Whatever
// follows it is user data and decodes as gopacket.Payload.
type RTHeader struct {
	layers.BaseLayer
	FrameID        FrameID
	CycleCounter   uint16
	DataStatus     uint8
	TransferStatus uint8
}

func (h *RTHeader) LayerType() gopacket.LayerType { return LayerTypeProfinetRT }

func (h *RTHeader) CanDecode() gopacket.LayerClass { return LayerTypeProfinetRT }

func (h *RTHeader) NextLayerType() gopacket.LayerType { return gopacket.LayerTypePayload }

func (h *RTHeader) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < RTHeaderLen {
		df.SetTruncated()
		return errors.Wrapf(ErrPacketTooShort, "rt header needs %d bytes, found %d", RTHeaderLen, len(data))
	}
	h.FrameID = FrameID(binary.BigEndian.Uint16(data[0:2]))
	h.CycleCounter = binary.BigEndian.Uint16(data[2:4])
	h.DataStatus = data[4]
	h.TransferStatus = data[5]
	h.BaseLayer = layers.BaseLayer{Contents: data[:RTHeaderLen], Payload: data[RTHeaderLen:]}
	return nil
}

// SerializeTo prepends the six header bytes in network byte order.
func (h *RTHeader) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(RTHeaderLen)
	if err != nil {
		return errors.Wrap(err, "prepend rt header")
	}
	binary.BigEndian.PutUint16(bytes[0:2], uint16(h.FrameID))
	binary.BigEndian.PutUint16(bytes[2:4], h.CycleCounter)
	bytes[4] = h.DataStatus
	bytes[5] = h.TransferStatus
	return nil
}

func decodeProfinetRT(data []byte, p gopacket.PacketBuilder) error {
	h := &RTHeader{}
	if err := h.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(h)
	return p.NextDecoder(h.NextLayerType())
}
