package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cauldron-optimizer/internal/service"
)

func sampleResponse() service.Response {
	return service.Response{
		Version:    "2024-06",
		Score:      87.456,
		Allocation: []int{3, 0, 5, 0, 0, 0, 0, 17, 0, 0, 0, 0},
		ItemNames: []string{
			"ash", "moonpetal", "salt", "ember", "fern", "quartz",
			"honey", "nightshade", "pearl", "sulfur", "thistle", "wax",
		},
		Effects: []service.Effect{
			{Index: 4, Name: "haste", Value: 61.2, Weight: 1},
			{Index: 0, Name: "luck", Value: 38.5, Weight: 0.25},
		},
	}
}

func TestFormatGrid(t *testing.T) {
	got := Format(sampleResponse())
	want := strings.Join([]string{
		"Dataset: 2024-06",
		"Score: 87.46",
		"Allocation:",
		"  [ 3  0  5  0]",
		"  [ 0  0  0 17]",
		"  [ 0  0  0  0]",
		"  ash                  x3",
		"  salt                 x5",
		"  nightshade           x17",
		"Effects:",
		"  haste                 61.20%  weight 1.00",
		"  luck                  38.50%  weight 0.25",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestFormatWithoutGrid(t *testing.T) {
	resp := service.Response{Score: 0, Allocation: []int{0, 2}}
	got := Format(resp)
	assert.NotContains(t, got, "Dataset:")
	assert.NotContains(t, got, "[")
	assert.Contains(t, got, "item-2")
	assert.Contains(t, got, "(none)")
}

func TestChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Chart(&buf, sampleResponse()))
	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "haste")
	assert.Contains(t, html, "nightshade")

	assert.Error(t, Chart(&buf, service.Response{}))
}

func TestWriteChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.html")
	require.NoError(t, WriteChart(path, sampleResponse()))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Effect probabilities")
}
