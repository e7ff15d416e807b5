package profinet

import (
	"encoding/hex"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRoundTrip(t *testing.T) {
	data, err := EncodeFrame("00:11:22:33:44:55", "FF:FF:FF:FF:FF:FF", 0xC000, 1, 0x80, 0x01, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.NoError(t, err)

	p, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "00:11:22:33:44:55", p.SrcMAC.String())
	assert.Equal(t, "ff:ff:ff:ff:ff:ff", p.DstMAC.String())
	assert.Equal(t, FrameID(0xC000), p.RT.FrameID)
	assert.Equal(t, uint16(1), p.RT.CycleCounter)
	assert.Equal(t, uint8(0x80), p.RT.DataStatus)
	assert.Equal(t, uint8(0x01), p.RT.TransferStatus)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, p.UserData)
	assert.Equal(t, 24, p.Length)
	assert.Equal(t, ClassRTUnicast, p.Class())
	assert.Nil(t, p.DCP)

	again, err := p.Frame().Encode()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestDecodeEmptyUserData(t *testing.T) {
	data, err := EncodeFrame("00:11:22:33:44:55", "FF:FF:FF:FF:FF:FF", 0xF800, 7, 0, 0, nil)
	require.NoError(t, err)

	p, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, p.UserData)
	assert.Equal(t, ClassRTMulticast, p.Class())
}

func TestDecodeCapturedDCP(t *testing.T) {
	data, err := hex.DecodeString("010ecf000000000e8cd3e37f8892fefe0500030004880001000c02020007706e2d696f2d3200cccc00000000000000000000000000000000")
	require.NoError(t, err)

	p, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "01:0e:cf:00:00:00", p.DstMAC.String())
	assert.Equal(t, "00:0e:8c:d3:e3:7f", p.SrcMAC.String())
	assert.Equal(t, ClassDCPIdentifyRequest, p.Class())
	require.NoError(t, p.DCPErr)
	require.NotNil(t, p.DCP)
	assert.Equal(t, uint8(0x05), p.DCP.ServiceID)
	assert.Equal(t, uint32(0x03000488), p.DCP.XID)
	assert.Equal(t, uint16(1), p.DCP.ResponseDelay)
	assert.Equal(t, uint16(0x0C), p.DCP.DataLength)
	assert.Equal(t, uint16(7), p.DCP.BlockLength)
	assert.Equal(t, "pn-io-2", p.DCP.NameOfStation)
}

func TestDecodeRejects(t *testing.T) {
	ipv4 := make([]byte, 34)
	ipv4[12], ipv4[13] = 0x08, 0x00
	_, err := Decode(ipv4)
	assert.True(t, errors.Is(err, ErrNotProfinet))

	short := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0, 0x11, 0x22, 0x33, 0x44, 0x55, 0x88, 0x92, 0xC0}
	_, err = Decode(short)
	assert.Error(t, err)

	_, err = Decode([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestRTHeaderLayer(t *testing.T) {
	data, err := EncodeFrame("00:11:22:33:44:55", "FF:FF:FF:FF:FF:FF", 0xC001, 2, 0x80, 0x01, []byte{0xFE, 0xED, 0xFA, 0xCE})
	require.NoError(t, err)

	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())

	var types []gopacket.LayerType
	for _, l := range packet.Layers() {
		types = append(types, l.LayerType())
	}
	assert.Equal(t, []gopacket.LayerType{layers.LayerTypeEthernet, LayerTypeProfinetRT, gopacket.LayerTypePayload}, types)
	assert.Equal(t, []byte{0xFE, 0xED, 0xFA, 0xCE}, packet.ApplicationLayer().Payload())
}
