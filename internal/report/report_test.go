package report

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/spigell/tender-analyzer/internal/model"
	"github.com/spigell/tender-analyzer/internal/pipeline"
)

func ptr[T any](v T) *T { return &v }

func sampleSuccess() *pipeline.Success {
	bids := []*model.BidSpec{
		{Filename: "a.pdf", Quantity: ptr(5)},
		{Filename: "b.pdf", Quantity: ptr(10), Processor: ptr("Intel i7"), RAM: ptr("16GB RAM"), Storage: ptr("512GB SSD"), RawText: "Quantity: 10"},
		model.EmptyBid("c.pdf"),
	}
	return &pipeline.Success{
		Tender:        model.TenderSpec{Item: model.DefaultItem, Quantity: 10, Processor: "Intel i7", RAM: "16GB RAM", Storage: "512GB SSD"},
		BestBid:       bids[1],
		QualifiedBids: 1,
		Bids:          bids,
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		expect  Format
		wantErr bool
	}{
		{input: "", expect: FormatJSON},
		{input: "JSON", expect: FormatJSON},
		{input: " yaml ", expect: FormatYAML},
		{input: "yml", expect: FormatYAML},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expect, got, tt.input)
	}
}

func TestRenderJSON(t *testing.T) {
	r := FromSuccess(sampleSuccess())

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.ElementsMatch(t, []string{"requirements", "bestBid", "qualifiedBids"}, keys(decoded))
	assert.EqualValues(t, 1, decoded["qualifiedBids"])

	best := decoded["bestBid"].(map[string]any)
	assert.Equal(t, "b.pdf", best["filename"])
	assert.Equal(t, "Quantity: 10", best["rawText"])

	requirements := decoded["requirements"].(map[string]any)
	assert.Equal(t, "Laptop", requirements["item"])
}

func TestRenderJSONNullFields(t *testing.T) {
	r := &Report{BestBid: model.EmptyBid("x.pdf")}

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, FormatJSON))
	assert.Contains(t, buf.String(), `"quantity": null`)
	assert.Contains(t, buf.String(), `"processor": null`)
}

func TestRenderYAML(t *testing.T) {
	r := FromSuccess(sampleSuccess())

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, FormatYAML))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1, decoded["qualifiedBids"])
	assert.Equal(t, "b.pdf", decoded["bestBid"].(map[string]any)["filename"])

	assert.Error(t, r.Render(&buf, Format("xml")))
}

func TestDumpToTmpFile(t *testing.T) {
	r := FromSuccess(sampleSuccess())

	name, err := r.DumpToTmpFile()
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(name) })

	data, err := os.ReadFile(name)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.Requirements, decoded.Requirements)
	assert.Equal(t, "b.pdf", decoded.BestBid.Filename)
}

func TestByBid(t *testing.T) {
	r := FromSuccess(sampleSuccess())

	summary := r.ByBid()
	require.Len(t, summary, 3)

	assert.Equal(t, BidSummary{Filename: "a.pdf", Quantity: "5", Processor: "-", RAM: "-", Storage: "-"}, summary[0])
	assert.True(t, summary[1].Qualified)
	assert.True(t, summary[1].Best)
	assert.Equal(t, "Intel i7", summary[1].Processor)
	assert.False(t, summary[2].Qualified)
	assert.Equal(t, "-", summary[2].Quantity)

	remote := &Report{Requirements: r.Requirements, BestBid: r.BestBid, QualifiedBids: 1}
	only := remote.ByBid()
	require.Len(t, only, 1)
	assert.Equal(t, "b.pdf", only[0].Filename)
}

func TestFromSuccessNil(t *testing.T) {
	assert.Nil(t, FromSuccess(nil))
}

func keys(m map[string]any) []string {
	result := make([]string, 0, len(m))
	for k := range m {
		result = append(result, k)
	}
	return result
}
