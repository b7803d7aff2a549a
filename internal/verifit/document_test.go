package verifit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remcli/pkg/contracts/domain"
)

func writeSessionFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<?xml version="1.0"?>
<verifit_session version="4.2">
  <test name="frequencies">
    <data name="12ths">250 500</data>
  </test>
  <test name="speechmap" side="left">
    <data name="spl" stim_level="avg65" yunit="dB">60.0 61.0</data>
  </test>
</verifit_session>`), "patient_a")
	require.NoError(t, err)

	assert.Equal(t, "patient_a", doc.Filename)
	require.Len(t, doc.root.Tests, 2)
	assert.Equal(t, "frequencies", doc.root.Tests[0].Name)
	assert.Equal(t, "left", doc.root.Tests[1].Side)
}

func TestParseRejectsMalformedXML(t *testing.T) {
	_, err := Parse(strings.NewReader("<verifit_session><test></verifit_session>"), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSessionFile(t, dir, "left_only.xml", `<verifit_session>
  <test name="frequencies"><data name="12ths">250</data></test>
</verifit_session>`)

	doc, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "left_only", doc.Filename)

	_, err = ParseFile(filepath.Join(dir, "missing.xml"))
	require.Error(t, err)
}

func TestDocumentLookups(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<verifit_session>
  <test name="frequencies">
    <data name="12ths">250 500</data>
    <data name="audiometric">250 500 0 0</data>
  </test>
  <test name="speechmap" side="left">
    <data name="spl" stim_level="avg65">60.0 61.0</data>
    <data name="mpo_curve" stim_type="mpo">90.0 91.0</data>
    <data internal="map_rearspl2">60.0 61.0</data>
    <data name="test2_on-ear_meas_sii">0.81</data>
  </test>
  <test name="speechmap" side="right">
    <data name="spl" stim_level="avg65">64.0 65.0</data>
  </test>
</verifit_session>`), "doc")
	require.NoError(t, err)

	node, ok := doc.measuredNode(domain.ChannelLeft, domain.LevelAvg65)
	require.True(t, ok)
	assert.Equal(t, "60.0 61.0", node.Text)

	node, ok = doc.measuredNode(domain.ChannelRight, domain.LevelAvg65)
	require.True(t, ok)
	assert.Equal(t, "64.0 65.0", node.Text)

	_, ok = doc.measuredNode(domain.ChannelRight, domain.LevelAvg70)
	assert.False(t, ok)

	node, ok = doc.mpoNode(domain.ChannelLeft)
	require.True(t, ok)
	assert.Equal(t, "90.0 91.0", node.Text)

	_, ok = doc.mpoNode(domain.ChannelRight)
	assert.False(t, ok)

	node, ok = doc.internalNode(domain.ChannelLeft, "map_rearspl2")
	require.True(t, ok)
	assert.Equal(t, "60.0 61.0", node.Text)

	node, ok = doc.namedNode(domain.ChannelLeft, "test2_on-ear_meas_sii")
	require.True(t, ok)
	assert.Equal(t, "0.81", node.Text)

	node, ok = doc.gridNode("audiometric")
	require.True(t, ok)
	assert.Equal(t, "250 500 0 0", node.Text)

	_, ok = doc.gridNode("thirds")
	assert.False(t, ok)
}

// Duplicate nodes must resolve to the first in document order; the
// instrument's own software reads these files the same way.
func TestDocumentLookupsPreferDocumentOrder(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<verifit_session>
  <test name="speechmap" side="left">
    <data name="spl" stim_level="avg65">1.0 2.0</data>
  </test>
  <test name="speechmap_repeat" side="left">
    <data name="spl" stim_level="avg65">9.0 9.0</data>
  </test>
</verifit_session>`), "doc")
	require.NoError(t, err)

	node, ok := doc.measuredNode(domain.ChannelLeft, domain.LevelAvg65)
	require.True(t, ok)
	assert.Equal(t, "1.0 2.0", node.Text)
}
