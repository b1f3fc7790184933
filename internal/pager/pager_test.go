package pager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDerivesTotalPages(t *testing.T) {
	tests := []struct {
		name       string
		current    int
		totalCount int
		wantPages  int
		wantPage   int
	}{
		{name: "empty result still has one page", current: 1, totalCount: 0, wantPages: 1, wantPage: 1},
		{name: "exact multiple", current: 1, totalCount: 16, wantPages: 2, wantPage: 1},
		{name: "remainder adds a page", current: 1, totalCount: 17, wantPages: 3, wantPage: 1},
		{name: "single item", current: 1, totalCount: 1, wantPages: 1, wantPage: 1},
		{name: "current clamped to last page", current: 99, totalCount: 20, wantPages: 3, wantPage: 3},
		{name: "current clamped to first page", current: 0, totalCount: 20, wantPages: 3, wantPage: 1},
		{name: "negative count treated as empty", current: 1, totalCount: -5, wantPages: 1, wantPage: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.current, DefaultPageSize, tt.totalCount)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantPage, p.Current)
		})
	}
}

func TestCeilingAcrossCounts(t *testing.T) {
	// ceil(n/8) must hold for every count in a representative range.
	for n := 0; n <= 100; n++ {
		p := New(1, DefaultPageSize, n)
		want := (n + DefaultPageSize - 1) / DefaultPageSize
		if want == 0 {
			want = 1
		}
		assert.Equal(t, want, p.TotalPages, "totalCount=%d", n)
	}
}

func TestPrevNextGuards(t *testing.T) {
	p := New(1, DefaultPageSize, 24) // 3 pages

	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())
	assert.Equal(t, 1, p.Prev(), "Prev on first page stays put")
	assert.Equal(t, 2, p.Next())

	mid := New(2, DefaultPageSize, 24)
	assert.True(t, mid.HasPrev())
	assert.True(t, mid.HasNext())

	last := New(3, DefaultPageSize, 24)
	assert.True(t, last.HasPrev())
	assert.False(t, last.HasNext())
	assert.Equal(t, 3, last.Next(), "Next on last page stays put")
}
