package profinet

import "fmt"

// FrameID identifies the class and instance of a PROFINET frame.
type FrameID uint16

const (
	FrameIDRTUnicastFirst   FrameID = 0xC000
	FrameIDRTUnicastLast    FrameID = 0xF7FF
	FrameIDRTMulticastFirst FrameID = 0xF800
	FrameIDRTMulticastLast  FrameID = 0xFBFF
	FrameIDDCPGetSet        FrameID = 0xFEFD
	FrameIDDCPIdentifyReq   FrameID = 0xFEFE
	FrameIDDCPIdentifyResp  FrameID = 0xFEFF
)

type FrameClass int

const (
	ClassUnknown FrameClass = iota
	ClassRTUnicast
	ClassRTMulticast
	ClassDCPGetSet
	ClassDCPIdentifyRequest
	ClassDCPIdentifyResponse
)

var frameClassNames = map[FrameClass]string{
	ClassUnknown:             "unknown",
	ClassRTUnicast:           "rt_unicast",
	ClassRTMulticast:         "rt_multicast",
	ClassDCPGetSet:           "dcp_get_set",
	ClassDCPIdentifyRequest:  "dcp_identify_request",
	ClassDCPIdentifyResponse: "dcp_identify_response",
}

func (c FrameClass) String() string {
	if name, ok := frameClassNames[c]; ok {
		return name
	}
	return fmt.Sprintf("FrameClass(%d)", int(c))
}

// IsDCP reports whether frames of this class carry a DCP PDU.
func (c FrameClass) IsDCP() bool {
	return c == ClassDCPGetSet || c == ClassDCPIdentifyRequest || c == ClassDCPIdentifyResponse
}

// Class maps the frame ID onto its range.
func (id FrameID) Class() FrameClass {
	switch {
	case id >= FrameIDRTUnicastFirst && id <= FrameIDRTUnicastLast:
		return ClassRTUnicast
	case id >= FrameIDRTMulticastFirst && id <= FrameIDRTMulticastLast:
		return ClassRTMulticast
	case id == FrameIDDCPGetSet:
		return ClassDCPGetSet
	case id == FrameIDDCPIdentifyReq:
		return ClassDCPIdentifyRequest
	case id == FrameIDDCPIdentifyResp:
		return ClassDCPIdentifyResponse
	default:
		return ClassUnknown
	}
}

func (id FrameID) String() string {
	return fmt.Sprintf("0x%04X", uint16(id))
}
