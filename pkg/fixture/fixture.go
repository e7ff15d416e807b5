package fixture

import (
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/BIwashi/pnrtgen/pkg/pcap"
	"github.com/BIwashi/pnrtgen/pkg/profinet"
)

const (
	DefaultOutput   = "profinet_rt_packets.pcap"
	DefaultInterval = time.Millisecond

	// EnvPrefix prefixes environment overrides, e.g. PNRT_OUTPUT.
	EnvPrefix = "PNRT"
)

// FrameDef describes one frame. Integer fields are kept wide so that
// out-of-range values reach the encoder and are reported there.
type FrameDef struct {
	SrcMAC         string   `mapstructure:"src_mac" yaml:"src_mac"`
	DstMAC         string   `mapstructure:"dst_mac" yaml:"dst_mac"`
	FrameID        int      `mapstructure:"frame_id" yaml:"frame_id"`
	CycleCounter   int      `mapstructure:"cycle_counter" yaml:"cycle_counter"`
	DataStatus     int      `mapstructure:"data_status" yaml:"data_status"`
	TransferStatus int      `mapstructure:"transfer_status" yaml:"transfer_status"`
	UserData       HexBytes `mapstructure:"user_data" yaml:"user_data"`
}

func (d FrameDef) Encode() ([]byte, error) {
	return profinet.EncodeFrame(d.SrcMAC, d.DstMAC, d.FrameID, d.CycleCounter, d.DataStatus, d.TransferStatus, d.UserData)
}

// Set is an ordered list of frames plus where and how to store them.
type Set struct {
	Output    string        `mapstructure:"output"`
	Format    string        `mapstructure:"format"`
	StartTime time.Time     `mapstructure:"start_time"`
	Interval  time.Duration `mapstructure:"interval"`
	Frames    []FrameDef    `mapstructure:"frames"`
}

// Default returns the two RT class 1 frames written when no fixture file is given.
func Default() *Set {
	return &Set{
		Output:   DefaultOutput,
		Format:   string(pcap.FormatPcap),
		Interval: DefaultInterval,
		Frames: []FrameDef{
			{
				SrcMAC:         "00:11:22:33:44:55",
				DstMAC:         "FF:FF:FF:FF:FF:FF",
				FrameID:        0xC000,
				CycleCounter:   1,
				DataStatus:     0x80,
				TransferStatus: 0x01,
				UserData:       HexBytes{0xDE, 0xAD, 0xBE, 0xEF},
			},
			{
				SrcMAC:         "00:11:22:33:44:56",
				DstMAC:         "FF:FF:FF:FF:FF:FE",
				FrameID:        0xC001,
				CycleCounter:   2,
				DataStatus:     0x80,
				TransferStatus: 0x01,
				UserData:       HexBytes{0xFE, 0xED, 0xFA, 0xCE},
			},
		},
	}
}

// Load reads a fixture file (YAML, JSON or TOML by extension). Top-level keys
// can be overridden from the environment, e.g. PNRT_OUTPUT or PNRT_INTERVAL.
func Load(path string) (*Set, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("output", def.Output)
	v.SetDefault("format", def.Format)
	v.SetDefault("interval", def.Interval.String())
	v.SetDefault("start_time", "")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read fixture file %s", path)
	}

	set := &Set{}
	if err := v.Unmarshal(set, viper.DecodeHook(decodeHook())); err != nil {
		return nil, errors.Wrapf(err, "decode fixture file %s", path)
	}
	if len(set.Frames) == 0 {
		return nil, errors.Newf("fixture file %s defines no frames", path)
	}
	return set, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		hexBytesHook,
		emptyTimeHook,
		mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

// hexBytesHook rejects unquoted numbers for hex fields. Weak conversion
// would otherwise turn user_data: 12345678 into a single byte.
func hexBytesHook(f, t reflect.Type, data any) (any, error) {
	if t != reflect.TypeOf(HexBytes{}) || f.Kind() == reflect.String {
		return data, nil
	}
	return nil, errors.Newf("expected a quoted hex string, got %v (%s)", data, f)
}

func emptyTimeHook(_, t reflect.Type, data any) (any, error) {
	if s, ok := data.(string); ok && s == "" && t == reflect.TypeOf(time.Time{}) {
		return time.Time{}, nil
	}
	return data, nil
}

// Encode encodes every frame in order.
func (s *Set) Encode() ([][]byte, error) {
	out := make([][]byte, 0, len(s.Frames))
	for i, def := range s.Frames {
		data, err := def.Encode()
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", i)
		}
		out = append(out, data)
	}
	return out, nil
}

// Records encodes the set and stamps frame i with StartTime + i*Interval.
// now is used when StartTime is unset.
func (s *Set) Records(now time.Time) ([]pcap.Record, error) {
	frames, err := s.Encode()
	if err != nil {
		return nil, err
	}
	start := s.StartTime
	if start.IsZero() {
		start = now
	}
	records := make([]pcap.Record, len(frames))
	for i, data := range frames {
		records[i] = pcap.Record{
			Timestamp: start.Add(time.Duration(i) * s.Interval),
			Data:      data,
		}
	}
	return records, nil
}
