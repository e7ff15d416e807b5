package pcap

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

type Format string

const (
	FormatPcap   Format = "pcap"
	FormatPcapNG Format = "pcapng"
	// FormatLive is reported by readers attached to a network interface.
	FormatLive Format = "live"

	// DefaultSnapLen is large enough for any Ethernet frame, jumbo frames included.
	DefaultSnapLen = 65535
)

var ErrSnapLen = errors.New("frame exceeds snap length")

// ParseFormat accepts "pcap" and "pcapng" in any case; empty means pcap.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPcap:
		return FormatPcap, nil
	case FormatPcapNG:
		return FormatPcapNG, nil
	default:
		return "", errors.Newf("unsupported capture format %q", s)
	}
}

// Record is one frame and its capture time.
type Record struct {
	Timestamp time.Time
	Data      []byte
}

type packetWriter interface {
	WritePacket(ci gopacket.CaptureInfo, data []byte) error
}

// Writer appends Ethernet frames to a pcap or pcapng stream in call order.
type Writer struct {
	w       packetWriter
	ng      *pcapgo.NgWriter
	snapLen int
	count   int
}

// NewWriter writes the file header immediately. The io.Writer is not closed.
func NewWriter(out io.Writer, format Format) (*Writer, error) {
	switch format {
	case FormatPcap, "":
		w := pcapgo.NewWriter(out)
		if err := w.WriteFileHeader(DefaultSnapLen, layers.LinkTypeEthernet); err != nil {
			return nil, errors.Wrap(err, "write pcap file header")
		}
		return &Writer{w: w, snapLen: DefaultSnapLen}, nil
	case FormatPcapNG:
		intf := pcapgo.DefaultNgInterface
		intf.LinkType = layers.LinkTypeEthernet
		intf.SnapLength = DefaultSnapLen
		ng, err := pcapgo.NewNgWriterInterface(out, intf, pcapgo.DefaultNgWriterOptions)
		if err != nil {
			return nil, errors.Wrap(err, "create pcapng writer")
		}
		return &Writer{w: ng, ng: ng, snapLen: DefaultSnapLen}, nil
	default:
		return nil, errors.Newf("unsupported capture format %q", format)
	}
}

// WriteFrame stores the whole frame; frames longer than the snap length are
// rejected instead of truncated.
func (w *Writer) WriteFrame(ts time.Time, data []byte) error {
	if len(data) > w.snapLen {
		return errors.Wrapf(ErrSnapLen, "%d bytes > %d", len(data), w.snapLen)
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := w.w.WritePacket(ci, data); err != nil {
		return errors.Wrapf(err, "write frame %d", w.count)
	}
	w.count++
	return nil
}

// Count returns the number of frames written so far.
func (w *Writer) Count() int {
	return w.count
}

// Close flushes buffered pcapng blocks. pcap output is unbuffered.
func (w *Writer) Close() error {
	if w.ng != nil {
		return errors.Wrap(w.ng.Flush(), "flush pcapng writer")
	}
	return nil
}

// WriteFile creates path and writes every record in order.
func WriteFile(path string, format Format, records []Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create capture file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close capture file")
		}
	}()

	w, err := NewWriter(f, format)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := w.WriteFrame(r.Timestamp, r.Data); err != nil {
			return err
		}
	}
	return w.Close()
}
