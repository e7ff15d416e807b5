package profinet

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// DCPMinLen is the shortest DCP PDU carrying one block header.
const DCPMinLen = 16

// DCPPacket is a DCP PDU with a single NameOfStation block.
type DCPPacket struct {
	FrameID       FrameID `yaml:"frame_id"`
	ServiceID     uint8   `yaml:"service_id"`
	ServiceType   uint8   `yaml:"service_type"`
	XID           uint32  `yaml:"xid"`
	ResponseDelay uint16  `yaml:"response_delay"`
	DataLength    uint16  `yaml:"dcp_data_length"`
	Option        uint8   `yaml:"option"`
	Suboption     uint8   `yaml:"suboption"`
	BlockLength   uint16  `yaml:"dcp_block_length"`
	NameOfStation string  `yaml:"name_of_station"`
}

// DecodeDCP parses the Ethernet payload of a DCP frame, starting at the Frame ID.
func DecodeDCP(data []byte) (*DCPPacket, error) {
	if len(data) < DCPMinLen {
		return nil, errors.Wrapf(ErrPacketTooShort,
			"minimum length required is %d bytes, found %d bytes", DCPMinLen, len(data))
	}

	id := FrameID(binary.BigEndian.Uint16(data[0:2]))
	if id.Class() == ClassUnknown {
		return nil, errors.Wrapf(ErrUnknownFrameID, "%s", id)
	}

	block := data[12:]
	blockLen := binary.BigEndian.Uint16(block[2:4])
	if len(block) < 4+int(blockLen) {
		return nil, errors.Wrapf(ErrInvalidDCPBlockLength,
			"block declares %d bytes, found %d bytes", blockLen, len(block)-4)
	}
	name := block[4 : 4+int(blockLen)]
	if !utf8.Valid(name) {
		return nil, ErrInvalidNameOfStation
	}

	return &DCPPacket{
		FrameID:       id,
		ServiceID:     data[2],
		ServiceType:   data[3],
		XID:           binary.BigEndian.Uint32(data[4:8]),
		ResponseDelay: binary.BigEndian.Uint16(data[8:10]),
		DataLength:    binary.BigEndian.Uint16(data[10:12]),
		Option:        block[0],
		Suboption:     block[1],
		BlockLength:   blockLen,
		NameOfStation: string(name),
	}, nil
}
