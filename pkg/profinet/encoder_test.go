package profinet

import (
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrame(t *testing.T) {
	got, err := EncodeFrame("00:11:22:33:44:55", "FF:FF:FF:FF:FF:FF", 0xC000, 1, 0x80, 0x01, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.NoError(t, err)

	want := []byte{
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55,
		0x88, 0x92,
		0xC0, 0x00,
		0x00, 0x01,
		0x80,
		0x01,
		0xDE, 0xAD, 0xBE, 0xEF,
	}
	assert.Equal(t, want, got)
}

func TestEncodeFrameDeterministic(t *testing.T) {
	a, err := EncodeFrame("00:11:22:33:44:56", "FF:FF:FF:FF:FF:FE", 0xC001, 2, 0x80, 0x01, []byte{0xFE, 0xED, 0xFA, 0xCE})
	require.NoError(t, err)
	b, err := EncodeFrame("00:11:22:33:44:56", "FF:FF:FF:FF:FF:FE", 0xC001, 2, 0x80, 0x01, []byte{0xFE, 0xED, 0xFA, 0xCE})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeFrameFields(t *testing.T) {
	tests := []struct {
		name           string
		frameID        int
		cycleCounter   int
		dataStatus     int
		transferStatus int
		userData       []byte
	}{
		{name: "zero values", userData: nil},
		{name: "max values", frameID: 0xFFFF, cycleCounter: 0xFFFF, dataStatus: 0xFF, transferStatus: 0xFF, userData: []byte{0x00}},
		{name: "rt class 1", frameID: 0xC000, cycleCounter: 1, dataStatus: 0x80, transferStatus: 0x01, userData: []byte{1, 2, 3, 4}},
		{name: "dcp identify", frameID: 0xFEFE, cycleCounter: 0x0500, dataStatus: 0x03, transferStatus: 0x00, userData: make([]byte, 1500)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeFrame("00-0e-8c-d3-e3-7f", "010e.cf00.0000", tt.frameID, tt.cycleCounter, tt.dataStatus, tt.transferStatus, tt.userData)
			require.NoError(t, err)

			require.Len(t, got, 20+len(tt.userData))
			assert.Equal(t, []byte{0x01, 0x0e, 0xcf, 0x00, 0x00, 0x00}, got[0:6])
			assert.Equal(t, []byte{0x00, 0x0e, 0x8c, 0xd3, 0xe3, 0x7f}, got[6:12])
			assert.Equal(t, uint16(0x8892), binary.BigEndian.Uint16(got[12:14]))
			assert.Equal(t, tt.frameID, int(binary.BigEndian.Uint16(got[14:16])))
			assert.Equal(t, tt.cycleCounter, int(binary.BigEndian.Uint16(got[16:18])))
			assert.Equal(t, tt.dataStatus, int(got[18]))
			assert.Equal(t, tt.transferStatus, int(got[19]))
			if len(tt.userData) > 0 {
				assert.Equal(t, tt.userData, got[20:])
			}
		})
	}
}

func TestEncodeFrameByteOrder(t *testing.T) {
	got, err := EncodeFrame("00:11:22:33:44:55", "FF:FF:FF:FF:FF:FF", 0xC000, 1, 0, 0, nil)
	require.NoError(t, err)

	// frame_id and cycle_counter follow the 14-byte Ethernet header.
	assert.Equal(t, []byte{0xC0, 0x00}, got[14:16])
	assert.Equal(t, []byte{0x00, 0x01}, got[16:18])

	payload := got[EthernetHeaderLen:]
	assert.Equal(t, []byte{0xC0, 0x00}, payload[0:2])
	assert.Equal(t, []byte{0x00, 0x01}, payload[2:4])
}

func TestEncodeFrameValidation(t *testing.T) {
	tests := []struct {
		name           string
		src, dst       string
		frameID        int
		cycleCounter   int
		dataStatus     int
		transferStatus int
		field          string
	}{
		{name: "frame id too large", frameID: 65536, field: "frame_id"},
		{name: "frame id negative", frameID: -1, field: "frame_id"},
		{name: "cycle counter too large", cycleCounter: 65536, field: "cycle_counter"},
		{name: "data status too large", dataStatus: 256, field: "data_status"},
		{name: "transfer status too large", transferStatus: 256, field: "transfer_status"},
		{name: "bad src", src: "00:11:22:33:44", field: "src_mac"},
		{name: "eui64 dst", dst: "00:11:22:33:44:55:66:77", field: "dst_mac"},
		{name: "garbage dst", dst: "not-a-mac", field: "dst_mac"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dst := tt.src, tt.dst
			if src == "" {
				src = "00:11:22:33:44:55"
			}
			if dst == "" {
				dst = "FF:FF:FF:FF:FF:FF"
			}
			_, err := EncodeFrame(src, dst, tt.frameID, tt.cycleCounter, tt.dataStatus, tt.transferStatus, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrEncoding))

			var encErr *EncodingError
			require.True(t, errors.As(err, &encErr))
			assert.Equal(t, tt.field, encErr.Field)
		})
	}
}

func TestEncodeFrameBoundaries(t *testing.T) {
	for _, id := range []int{0, 65535} {
		_, err := EncodeFrame("00:11:22:33:44:55", "FF:FF:FF:FF:FF:FF", id, 0, 0, 0, nil)
		assert.NoError(t, err, "frame id %d", id)
	}
}

func TestFrameValidate(t *testing.T) {
	f := &Frame{SrcMAC: []byte{1, 2, 3}, DstMAC: []byte{1, 2, 3, 4, 5, 6}}
	_, err := f.Encode()
	assert.True(t, errors.Is(err, ErrEncoding))

	f.SrcMAC = []byte{1, 2, 3, 4, 5, 6}
	out, err := f.Encode()
	require.NoError(t, err)
	assert.Len(t, out, f.Len())
}

func BenchmarkEncodeFrame(b *testing.B) {
	userData := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	for i := 0; i < b.N; i++ {
		if _, err := EncodeFrame("00:11:22:33:44:55", "FF:FF:FF:FF:FF:FF", 0xC000, i&0xFFFF, 0x80, 0x01, userData); err != nil {
			b.Fatal(err)
		}
	}
}
