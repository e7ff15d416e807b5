package pcap

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/BIwashi/pnrtgen/pkg/profinet"
)

// pcapng files start with a Section Header Block.
const ngSectionHeaderMagic = 0x0A0D0D0A

type packetSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Reader reads PROFINET frames from a pcap or pcapng stream.
type Reader struct {
	source       packetSource
	format       Format
	linkType     layers.LinkType
	packetCount  uint64
	skippedCount uint64
}

// NewReader detects the capture format from the leading magic number.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, errors.Wrap(err, "read capture magic")
	}

	var (
		source packetSource
		format Format
	)
	if binary.LittleEndian.Uint32(magic) == ngSectionHeaderMagic {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create pcapng reader")
		}
		source, format = ng, FormatPcapNG
	} else {
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create pcap reader")
		}
		source, format = pr, FormatPcap
	}

	linkType := source.LinkType()
	if linkType != layers.LinkTypeEthernet {
		return nil, errors.Newf("unsupported link type: %v", linkType)
	}

	return &Reader{
		source:   source,
		format:   format,
		linkType: linkType,
	}, nil
}

// NewLiveReader reads from a live Ethernet source such as a
// pcapgo.EthernetHandle. Format reports FormatLive.
func NewLiveReader(src gopacket.PacketDataSource) *Reader {
	return &Reader{
		source:   liveSource{src},
		format:   FormatLive,
		linkType: layers.LinkTypeEthernet,
	}
}

type liveSource struct {
	gopacket.PacketDataSource
}

func (liveSource) LinkType() layers.LinkType { return layers.LinkTypeEthernet }

// ReadNext returns the next PROFINET frame, skipping everything else.
// It returns io.EOF after the last record.
func (r *Reader) ReadNext() (*profinet.Packet, error) {
	for {
		data, ci, err := r.source.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "failed to read packet data")
		}

		r.packetCount++

		pkt, err := profinet.Decode(data)
		if err != nil {
			r.skippedCount++
			continue
		}
		pkt.Timestamp = ci.Timestamp
		pkt.Length = ci.Length

		return pkt, nil
	}
}

// ReadAll drains the reader.
func (r *Reader) ReadAll() ([]*profinet.Packet, error) {
	var out []*profinet.Packet
	for {
		pkt, err := r.ReadNext()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, pkt)
	}
}

func (r *Reader) Format() Format { return r.format }

// PacketCount returns the number of records read, PROFINET or not.
func (r *Reader) PacketCount() uint64 {
	return r.packetCount
}

// SkippedCount returns the number of records that were not PROFINET frames.
func (r *Reader) SkippedCount() uint64 {
	return r.skippedCount
}
