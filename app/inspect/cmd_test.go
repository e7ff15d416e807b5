package inspect

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/BIwashi/pnrtgen/pkg/cli"
	"github.com/BIwashi/pnrtgen/pkg/fixture"
	"github.com/BIwashi/pnrtgen/pkg/pcap"
)

const identifyRequestHex = "010ecf000000000e8cd3e37f8892fefe0500030004880001000c02020007706e2d696f2d3200cccc00000000000000000000000000000000"

func runInspect(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := cli.NewCLI("pnrtgen", "test")
	c.AddCommands(NewCommand())

	var stdout, stderr bytes.Buffer
	err := c.Execute(context.Background(), &stdout, &stderr, append([]string{"inspect"}, args...)...)
	return stdout.String(), err
}

func TestInspectHexDCP(t *testing.T) {
	out, err := runInspect(t, identifyRequestHex)
	require.NoError(t, err)

	assert.Contains(t, out, "Destination MAC: 01:0e:cf:00:00:00\n")
	assert.Contains(t, out, "Source MAC: 00:0e:8c:d3:e3:7f\n")
	assert.Contains(t, out, "EtherType: 0x8892\n")
	assert.Contains(t, out, "FrameID: 0xFEFE (dcp_identify_request)\n")
	assert.Contains(t, out, "XID: 0x03000488\n")
	assert.Contains(t, out, "NameOfStation: pn-io-2\n")
}

func TestInspectHexSkipsOtherEtherTypes(t *testing.T) {
	ipv4 := "ffffffffffff00112233445508004500"
	out, err := runInspect(t, ipv4)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestInspectFileYAML(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records, err := fixture.Default().Records(start)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "frames.pcap")
	require.NoError(t, pcap.WriteFile(path, pcap.FormatPcap, records))

	out, err := runInspect(t, "--pcap-file", path, "--output-format", "yaml")
	require.NoError(t, err)

	dec := yaml.NewDecoder(bytes.NewBufferString(out))
	var views []frameView
	for {
		var v frameView
		if err := dec.Decode(&v); err != nil {
			break
		}
		views = append(views, v)
	}
	require.Len(t, views, 2)
	assert.Equal(t, "0xC000", views[0].FrameID)
	assert.Equal(t, "rt_unicast", views[0].FrameClass)
	assert.Equal(t, uint16(1), views[0].CycleCounter)
	assert.Equal(t, "00:11:22:33:44:55", views[0].SrcMAC)
	assert.Equal(t, 24, views[0].Length)
	assert.Equal(t, "2024-01-01T00:00:00.000000Z", views[0].Timestamp)
	assert.Equal(t, "0xC001", views[1].FrameID)
	assert.Equal(t, uint16(2), views[1].CycleCounter)
}

func TestInspectFileText(t *testing.T) {
	records, err := fixture.Default().Records(time.Now())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "frames.pcapng")
	require.NoError(t, pcap.WriteFile(path, pcap.FormatPcapNG, records))

	out, err := runInspect(t, "--pcap-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "UserData: DEADBEEF\n")
	assert.Contains(t, out, "UserData: FEEDFACE\n")
	assert.Contains(t, out, "DataStatus: 0x80\n")
}

func TestInspectErrors(t *testing.T) {
	_, err := runInspect(t)
	assert.Error(t, err)

	_, err = runInspect(t, "--output-format", "xml", identifyRequestHex)
	assert.Error(t, err)

	_, err = runInspect(t, "zz")
	assert.Error(t, err)

	_, err = runInspect(t, "--pcap-file", filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Error(t, err)
}
