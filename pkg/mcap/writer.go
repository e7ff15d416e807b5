package mcap

import (
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/foxglove/mcap/go/mcap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BIwashi/pnrtgen/pkg/profinet"
)

const schemaName = "google.protobuf.Struct"

// Writer writes decoded PROFINET frames into an MCAP file.
//
// Every message is a google.protobuf.Struct holding the frame fields, so a
// single schema serves all channels. One channel is created per Frame ID on
// first use, with topic /profinet/<class>/<frame id>.
type Writer struct {
	mu         sync.Mutex
	writer     *mcap.Writer
	schemaID   uint16
	nextChanID uint16
	channels   map[profinet.FrameID]uint16
	sequences  map[uint16]uint32
}

// NewWriter initializes an MCAP writer with the Struct schema registered.
// The provided io.Writer should be an opened file (will not be closed here).
func NewWriter(out io.Writer) (*Writer, error) {
	w, err := mcap.NewWriter(out, &mcap.WriterOptions{
		Chunked:     true,
		ChunkSize:   2 * 1024 * 1024, // 2MB chunks
		Compression: mcap.CompressionZSTD,
	})
	if err != nil {
		return nil, fmt.Errorf("create MCAP writer: %w", err)
	}

	if err := w.WriteHeader(&mcap.Header{
		Profile: "",
		Library: "pnrtgen",
	}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	fds := &descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{
			protodesc.ToFileDescriptorProto(structpb.File_google_protobuf_struct_proto),
		},
	}
	data, err := proto.Marshal(fds)
	if err != nil {
		return nil, fmt.Errorf("marshal schema descriptor: %w", err)
	}

	schemaID := uint16(1)
	if err := w.WriteSchema(&mcap.Schema{
		ID:       schemaID,
		Name:     schemaName,
		Encoding: "protobuf",
		Data:     data,
	}); err != nil {
		return nil, fmt.Errorf("write schema: %w", err)
	}

	return &Writer{
		writer:     w,
		schemaID:   schemaID,
		nextChanID: 0,
		channels:   make(map[profinet.FrameID]uint16),
		sequences:  make(map[uint16]uint32),
	}, nil
}

// Topic returns the channel topic for a frame ID.
func Topic(id profinet.FrameID) string {
	return fmt.Sprintf("/profinet/%s/%s", id.Class(), id)
}

// ensureChannel ensures a channel exists for a frame ID; returns channel ID.
func (w *Writer) ensureChannel(id profinet.FrameID) (uint16, error) {
	if chID, ok := w.channels[id]; ok {
		return chID, nil
	}

	w.nextChanID++
	chID := w.nextChanID

	topic := Topic(id)
	if err := w.writer.WriteChannel(&mcap.Channel{
		ID:              chID,
		SchemaID:        w.schemaID,
		Topic:           topic,
		MessageEncoding: "protobuf",
		Metadata: map[string]string{
			"frame_id":    id.String(),
			"frame_class": id.Class().String(),
			"ethertype":   fmt.Sprintf("0x%04X", uint16(profinet.EtherTypeProfinet)),
		},
	}); err != nil {
		return 0, fmt.Errorf("write channel (topic=%s): %w", topic, err)
	}

	w.channels[id] = chID
	return chID, nil
}

// WritePacket writes one frame. LogTime/PublishTime use the capture timestamp.
func (w *Writer) WritePacket(pkt *profinet.Packet) error {
	if pkt == nil {
		return fmt.Errorf("nil packet")
	}
	msg, err := packetStruct(pkt)
	if err != nil {
		return err
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal packet struct: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	channelID, err := w.ensureChannel(pkt.RT.FrameID)
	if err != nil {
		return err
	}
	seq := w.sequences[channelID]
	w.sequences[channelID] = seq + 1

	ts := uint64(pkt.Timestamp.UnixNano())
	if err := w.writer.WriteMessage(&mcap.Message{
		ChannelID:   channelID,
		Sequence:    seq,
		LogTime:     ts,
		PublishTime: ts,
		Data:        data,
	}); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func packetStruct(pkt *profinet.Packet) (*structpb.Struct, error) {
	fields := map[string]any{
		"timestamp":       pkt.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z07:00"),
		"src_mac":         pkt.SrcMAC.String(),
		"dst_mac":         pkt.DstMAC.String(),
		"length":          pkt.Length,
		"frame_id":        int(pkt.RT.FrameID),
		"frame_class":     pkt.Class().String(),
		"cycle_counter":   int(pkt.RT.CycleCounter),
		"data_status":     int(pkt.RT.DataStatus),
		"transfer_status": int(pkt.RT.TransferStatus),
		"user_data":       hex.EncodeToString(pkt.UserData),
	}
	if dcp := pkt.DCP; dcp != nil {
		fields["dcp"] = map[string]any{
			"service_id":       int(dcp.ServiceID),
			"service_type":     int(dcp.ServiceType),
			"xid":              int64(dcp.XID),
			"response_delay":   int(dcp.ResponseDelay),
			"dcp_data_length":  int(dcp.DataLength),
			"option":           int(dcp.Option),
			"suboption":        int(dcp.Suboption),
			"dcp_block_length": int(dcp.BlockLength),
			"name_of_station":  dcp.NameOfStation,
		}
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build packet struct: %w", err)
	}
	return s, nil
}

// ChannelCount returns the number of channels created so far.
func (w *Writer) ChannelCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.channels)
}

// Close finalizes the MCAP file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writer.Close()
}
