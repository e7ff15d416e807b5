package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/BIwashi/pnrtgen/pkg/cli"
	"github.com/BIwashi/pnrtgen/pkg/mcap"
	"github.com/BIwashi/pnrtgen/pkg/pcap"
	"github.com/BIwashi/pnrtgen/pkg/profinet"
)

type converter struct {
	pcapFile string
	mcapFile string
}

func NewCommand() *cobra.Command {
	s := &converter{
		pcapFile: "",
		mcapFile: "",
	}

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert PROFINET frames captured with pcap/pcapng to MCAP.",
		Long: `Convert pcap or pcapng files containing PROFINET traffic to MCAP format.

This command reads frames with EtherType 0x8892, decodes their RT header (and
DCP block for DCP frames), and writes one MCAP channel per Frame ID with
google.protobuf.Struct messages.`,
		Example: `  # Convert a capture to MCAP
  pnrtgen convert --pcap-file profinet_rt_packets.pcap --mcap-file output.mcap`,
		RunE: cli.WithContext(s.run),
	}

	cmd.Flags().StringVar(&s.pcapFile, "pcap-file", s.pcapFile, "pcap or pcapng file")
	cmd.Flags().StringVar(&s.mcapFile, "mcap-file", s.mcapFile, "MCAP file")

	for _, name := range []string{"pcap-file", "mcap-file"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			fmt.Printf("failed to mark flag as required, err: %v", err)
			return nil
		}
	}

	return cmd
}

func (s *converter) run(ctx context.Context, input cli.Input) (err error) {
	input.Logger.Info("Starting capture to MCAP conversion",
		"pcap_file", s.pcapFile,
		"mcap_file", s.mcapFile,
	)

	// Open capture file
	pcapFile, err := os.Open(s.pcapFile)
	if err != nil {
		return errors.Wrap(err, "failed to open capture file")
	}
	defer pcapFile.Close()

	reader, err := pcap.NewReader(pcapFile)
	if err != nil {
		return errors.Wrap(err, "failed to create capture reader")
	}

	// Create MCAP file
	input.Logger.Info("Creating MCAP file...")
	mcapOutFile, err := os.Create(s.mcapFile)
	if err != nil {
		return errors.Wrap(err, "failed to create MCAP file")
	}
	defer mcapOutFile.Close()

	writer, err := mcap.NewWriter(mcapOutFile)
	if err != nil {
		return errors.Wrap(err, "failed to create MCAP writer")
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to finalize MCAP file")
		}
	}()

	input.Logger.Info("Converting PROFINET frames...")
	frameCount := 0
	dcpErrorCount := 0
	startTime := time.Now()
	frameIDCounts := make(map[profinet.FrameID]int)

	for {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "conversion cancelled")
		default:
			// Continue processing
		}

		pkt, err := reader.ReadNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errors.Wrap(err, "failed to read frame")
		}

		if pkt.DCPErr != nil {
			dcpErrorCount++
			input.Logger.Debug("dcp_decode_failed",
				"frame_id", pkt.RT.FrameID.String(),
				"error", pkt.DCPErr,
			)
		}

		if err := writer.WritePacket(pkt); err != nil {
			return errors.Wrap(err, "failed to write message")
		}

		frameCount++
		frameIDCounts[pkt.RT.FrameID]++

		// Progress reporting every 10000 frames
		if frameCount%10000 == 0 {
			input.Logger.Info(fmt.Sprintf("Progress: %d frames converted, %d records skipped",
				frameCount, reader.SkippedCount()))
		}
	}

	duration := time.Since(startTime)

	input.Logger.Info("Conversion completed successfully!",
		"total_records", reader.PacketCount(),
		"converted_frames", frameCount,
		"skipped_records", reader.SkippedCount(),
		"dcp_errors", dcpErrorCount,
		"output_file", s.mcapFile,
		"duration", duration,
	)

	if len(frameIDCounts) > 0 {
		input.Logger.Info(fmt.Sprintf("Found %d unique frame IDs", len(frameIDCounts)))
		for id, count := range frameIDCounts {
			input.Logger.Debug(fmt.Sprintf("  %s (%s): %d frames", id, id.Class(), count))
		}
	}

	return nil
}
