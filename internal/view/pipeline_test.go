package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedPipeline() *Pipeline {
	p := NewPipeline(nil, 2, saoPaulo)
	p.Now = func() time.Time { return day(2024, 5, 10, 15) }
	return p
}

func TestPipelineFilteredViewSorts(t *testing.T) {
	p := fixedPipeline()

	got := p.FilteredView(sampleLeads(), FilterState{Preset: Preset30d, SortBy: SortName})
	assert.Equal(t, []int64{4, 1, 2, 3}, ids(got))
}

func TestPipelineDoesNotMutateInput(t *testing.T) {
	p := fixedPipeline()
	records := sampleLeads()

	p.FilteredView(records, FilterState{SortBy: SortName, SortDesc: true})
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(records))
}

func TestPipelinePageUsesPageSize(t *testing.T) {
	p := fixedPipeline()

	res := p.Page(sampleLeads(), FilterState{}, 3)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, []int64{5}, ids(res.Items))
}

func TestPipelineDefaults(t *testing.T) {
	p := NewPipeline(nil, 0, nil)

	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Equal(t, time.UTC, p.Location)
	assert.NotNil(t, p.Catalog)
}

func TestPipelineExportMatchesFilteredView(t *testing.T) {
	p := fixedPipeline()
	f := FilterState{Status: "new"}

	rows := p.Export(sampleLeads(), f)
	assert.Len(t, rows, len(p.FilteredView(sampleLeads(), f)))
}
