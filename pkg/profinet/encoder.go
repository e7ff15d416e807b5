package profinet

import (
	"encoding/binary"
	"math"
	"net"

	"github.com/cockroachdb/errors"
	"github.com/google/gopacket"
)

// Frame holds the fields of one Ethernet frame with a PROFINET RT payload.
type Frame struct {
	SrcMAC         net.HardwareAddr
	DstMAC         net.HardwareAddr
	FrameID        FrameID
	CycleCounter   uint16
	DataStatus     uint8
	TransferStatus uint8
	UserData       []byte
}

// Len is the encoded size of the frame. No padding or FCS is added.
func (f *Frame) Len() int {
	return EthernetHeaderLen + RTHeaderLen + len(f.UserData)
}

func (f *Frame) Validate() error {
	if len(f.SrcMAC) != 6 {
		return &EncodingError{Field: "src_mac", Value: f.SrcMAC, Reason: "must be exactly 6 octets"}
	}
	if len(f.DstMAC) != 6 {
		return &EncodingError{Field: "dst_mac", Value: f.DstMAC, Reason: "must be exactly 6 octets"}
	}
	return nil
}

// Encode returns dst | src | 0x8892 | RT header | user data.
func (f *Frame) Encode() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	buf := gopacket.NewSerializeBuffer()
	rt := &RTHeader{
		FrameID:        f.FrameID,
		CycleCounter:   f.CycleCounter,
		DataStatus:     f.DataStatus,
		TransferStatus: f.TransferStatus,
	}
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, rt, gopacket.Payload(f.UserData)); err != nil {
		return nil, errors.Wrap(err, "serialize rt payload")
	}

	// layers.Ethernet pads short frames to 60 bytes, so the header is written here.
	hdr, err := buf.PrependBytes(EthernetHeaderLen)
	if err != nil {
		return nil, errors.Wrap(err, "prepend ethernet header")
	}
	copy(hdr[0:6], f.DstMAC)
	copy(hdr[6:12], f.SrcMAC)
	binary.BigEndian.PutUint16(hdr[12:14], uint16(EtherTypeProfinet))

	return buf.Bytes(), nil
}

// EncodeFrame builds one frame from textual MAC addresses and integer fields,
// rejecting values that do not fit their wire width.
func EncodeFrame(srcMAC, dstMAC string, frameID, cycleCounter, dataStatus, transferStatus int, userData []byte) ([]byte, error) {
	src, err := ParseMAC("src_mac", srcMAC)
	if err != nil {
		return nil, err
	}
	dst, err := ParseMAC("dst_mac", dstMAC)
	if err != nil {
		return nil, err
	}
	if err := checkRange("frame_id", frameID, math.MaxUint16); err != nil {
		return nil, err
	}
	if err := checkRange("cycle_counter", cycleCounter, math.MaxUint16); err != nil {
		return nil, err
	}
	if err := checkRange("data_status", dataStatus, math.MaxUint8); err != nil {
		return nil, err
	}
	if err := checkRange("transfer_status", transferStatus, math.MaxUint8); err != nil {
		return nil, err
	}

	f := &Frame{
		SrcMAC:         src,
		DstMAC:         dst,
		FrameID:        FrameID(frameID),
		CycleCounter:   uint16(cycleCounter),
		DataStatus:     uint8(dataStatus),
		TransferStatus: uint8(transferStatus),
		UserData:       userData,
	}
	return f.Encode()
}

// ParseMAC accepts colon, hyphen and dotted notation but only 6-octet addresses.
func ParseMAC(field, s string) (net.HardwareAddr, error) {
	mac, err := net.ParseMAC(s)
	if err != nil {
		return nil, &EncodingError{Field: field, Value: s, Reason: err.Error()}
	}
	if len(mac) != 6 {
		return nil, &EncodingError{Field: field, Value: s, Reason: "must be exactly 6 octets"}
	}
	return mac, nil
}

func checkRange(field string, v, max int) error {
	if v < 0 || v > max {
		return &EncodingError{Field: field, Value: v, Reason: "out of range"}
	}
	return nil
}
