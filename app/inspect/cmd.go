package inspect

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/BIwashi/pnrtgen/pkg/cli"
	"github.com/BIwashi/pnrtgen/pkg/fixture"
	"github.com/BIwashi/pnrtgen/pkg/pcap"
	"github.com/BIwashi/pnrtgen/pkg/profinet"
)

type inspector struct {
	pcapFile     string
	iface        string
	count        int
	outputFormat string

	openLive func(name string) (liveHandle, error)
}

func NewCommand() *cobra.Command {
	return newCommand(openInterface)
}

func newCommand(openLive func(name string) (liveHandle, error)) *cobra.Command {
	s := &inspector{
		pcapFile:     "",
		iface:        "",
		count:        0,
		outputFormat: "text",
		openLive:     openLive,
	}

	cmd := &cobra.Command{
		Use:   "inspect [hex-frame...]",
		Short: "Print the PROFINET fields of captured or hex-encoded frames.",
		Long: `Decode Ethernet frames with EtherType 0x8892 and print their RT header
fields. DCP Identify frames additionally show the decoded DCP block.

Frames are read from --pcap-file, captured live from --interface (Linux,
needs CAP_NET_RAW), or given as hex strings on the command line. A live
capture runs until interrupted or until --count frames were printed.`,
		Example: `  # Inspect a capture file
  pnrtgen inspect --pcap-file profinet_rt_packets.pcap

  # Print the next 10 PROFINET frames seen on eth0
  sudo pnrtgen inspect --interface eth0 --count 10

  # Inspect a hex dump as YAML
  pnrtgen inspect --output-format yaml 010ecf000000000e8cd3e37f8892fefe05000300...`,
		RunE: cli.WithContext(s.run),
	}

	cmd.Flags().StringVar(&s.pcapFile, "pcap-file", s.pcapFile, "pcap or pcapng file")
	cmd.Flags().StringVar(&s.iface, "interface", s.iface, "Network interface to capture from")
	cmd.Flags().IntVar(&s.count, "count", s.count, "Stop a live capture after this many frames (0: until interrupted)")
	cmd.Flags().StringVar(&s.outputFormat, "output-format", s.outputFormat, "Output format: text or yaml")

	cmd.MarkFlagsMutuallyExclusive("pcap-file", "interface")

	return cmd
}

func (s *inspector) run(ctx context.Context, input cli.Input) error {
	if s.pcapFile == "" && s.iface == "" && len(input.Args) == 0 {
		return errors.New("one of --pcap-file, --interface or hex frames must be given")
	}
	if s.count < 0 {
		return errors.Newf("invalid --count %d", s.count)
	}

	var p printer
	switch s.outputFormat {
	case "text":
		p = &textPrinter{w: input.Stdout}
	case "yaml":
		enc := yaml.NewEncoder(input.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		p = &yamlPrinter{enc: enc}
	default:
		return errors.Newf("unsupported output format %q", s.outputFormat)
	}

	switch {
	case s.iface != "":
		return s.inspectLive(ctx, input, p)
	case s.pcapFile != "":
		return s.inspectFile(ctx, input, p)
	default:
		return s.inspectHex(input, p)
	}
}

func (s *inspector) inspectFile(ctx context.Context, input cli.Input, p printer) error {
	f, err := os.Open(s.pcapFile)
	if err != nil {
		return errors.Wrap(err, "failed to open capture file")
	}
	defer f.Close()

	reader, err := pcap.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "failed to create capture reader")
	}

	frames := 0
	for {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "inspection cancelled")
		default:
		}

		pkt, err := reader.ReadNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errors.Wrap(err, "failed to read frame")
		}
		if err := p.print(pkt); err != nil {
			return err
		}
		frames++
	}

	input.Logger.Info("Inspection completed",
		"pcap_file", s.pcapFile,
		"format", reader.Format(),
		"records", reader.PacketCount(),
		"profinet_frames", frames,
		"skipped", reader.SkippedCount(),
	)
	return nil
}

func (s *inspector) inspectHex(input cli.Input, p printer) error {
	for i, arg := range input.Args {
		var data fixture.HexBytes
		if err := data.UnmarshalText([]byte(arg)); err != nil {
			return errors.Wrapf(err, "frame %d", i)
		}
		pkt, err := profinet.Decode(data)
		if errors.Is(err, profinet.ErrNotProfinet) {
			input.Logger.Warn("Not a PROFINET frame", "index", i, "error", err)
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "frame %d", i)
		}
		if err := p.print(pkt); err != nil {
			return err
		}
	}
	return nil
}

type printer interface {
	print(pkt *profinet.Packet) error
}

type textPrinter struct {
	w io.Writer
}

func (t *textPrinter) print(pkt *profinet.Packet) error {
	var err error
	line := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(t.w, format+"\n", args...)
		}
	}

	if !pkt.Timestamp.IsZero() {
		line("Timestamp: %s", pkt.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z07:00"))
	}
	line("Destination MAC: %s", pkt.DstMAC)
	line("Source MAC: %s", pkt.SrcMAC)
	line("EtherType: 0x%04x", uint16(profinet.EtherTypeProfinet))
	line("FrameID: %s (%s)", pkt.RT.FrameID, pkt.Class())
	switch {
	case pkt.DCP != nil:
		d := pkt.DCP
		line("ServiceID: %d", d.ServiceID)
		line("ServiceType: %d", d.ServiceType)
		line("XID: 0x%08x", d.XID)
		line("ResponseDelay: %d", d.ResponseDelay)
		line("DCP Data Length: %d", d.DataLength)
		line("Option: %d", d.Option)
		line("Suboption: %d", d.Suboption)
		line("DCP Block Length: %d", d.BlockLength)
		line("NameOfStation: %s", d.NameOfStation)
	case pkt.DCPErr != nil:
		line("DCP: %v", pkt.DCPErr)
	default:
		line("CycleCounter: %d", pkt.RT.CycleCounter)
		line("DataStatus: 0x%02x", pkt.RT.DataStatus)
		line("TransferStatus: 0x%02x", pkt.RT.TransferStatus)
		line("UserData: %s", fixture.HexBytes(pkt.UserData))
	}
	line("")
	return err
}

type frameView struct {
	Timestamp      string              `yaml:"timestamp,omitempty"`
	DstMAC         string              `yaml:"dst_mac"`
	SrcMAC         string              `yaml:"src_mac"`
	Length         int                 `yaml:"length"`
	FrameID        string              `yaml:"frame_id"`
	FrameClass     string              `yaml:"frame_class"`
	CycleCounter   uint16              `yaml:"cycle_counter"`
	DataStatus     uint8               `yaml:"data_status"`
	TransferStatus uint8               `yaml:"transfer_status"`
	UserData       fixture.HexBytes    `yaml:"user_data"`
	DCP            *profinet.DCPPacket `yaml:"dcp,omitempty"`
	DCPError       string              `yaml:"dcp_error,omitempty"`
}

type yamlPrinter struct {
	enc *yaml.Encoder
}

func (y *yamlPrinter) print(pkt *profinet.Packet) error {
	v := frameView{
		DstMAC:         pkt.DstMAC.String(),
		SrcMAC:         pkt.SrcMAC.String(),
		Length:         pkt.Length,
		FrameID:        pkt.RT.FrameID.String(),
		FrameClass:     pkt.Class().String(),
		CycleCounter:   pkt.RT.CycleCounter,
		DataStatus:     pkt.RT.DataStatus,
		TransferStatus: pkt.RT.TransferStatus,
		UserData:       fixture.HexBytes(pkt.UserData),
		DCP:            pkt.DCP,
	}
	if !pkt.Timestamp.IsZero() {
		v.Timestamp = pkt.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z07:00")
	}
	if pkt.DCPErr != nil {
		v.DCPError = pkt.DCPErr.Error()
	}
	return errors.Wrap(y.enc.Encode(v), "encode yaml")
}
