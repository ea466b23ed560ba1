package converter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable_Lookup(t *testing.T) {
	table := DefaultTable(Options{Runner: &fakeRunner{}})

	tests := []struct {
		src, dst string
		want     string
	}{
		{"docx", "html", "docx-html"},
		{"mp4", "avi", "video"},
		{"mkv", "mov", "video"},
		{"mov", "mov", "video"},
		{"png", "jpg", "image"},
		{"jpeg", "webp", "image"},
		{"webp", "png", "image"},
		{"jpg", "jpeg", "image"},
		{"jpg", "pdf", "image-pdf"},
		{"jpeg", "pdf", "image-pdf"},
		{"png", "pdf", "image-pdf"},
		{"pdf", "jpg", "pdf-jpg"},
	}
	for _, tt := range tests {
		s, err := table.Lookup(tt.src, tt.dst)
		require.NoError(t, err, "%s->%s", tt.src, tt.dst)
		assert.Equal(t, tt.want, s.Name(), "%s->%s", tt.src, tt.dst)
	}
}

func TestDefaultTable_Unsupported(t *testing.T) {
	table := DefaultTable(Options{Runner: &fakeRunner{}})

	for _, pair := range [][2]string{
		{"webp", "pdf"},
		{"pdf", "png"},
		{"pdf", "jpeg"},
		{"docx", "pdf"},
		{"txt", "html"},
		{"mp4", "jpg"},
		{"", "png"},
	} {
		s, err := table.Lookup(pair[0], pair[1])
		assert.Nil(t, s)
		assert.ErrorIs(t, err, ErrUnsupportedConversion, "%v", pair)
	}
}

func TestDefaultTable_Order(t *testing.T) {
	table := DefaultTable(Options{Runner: &fakeRunner{}})
	var names []string
	for _, s := range table.Strategies() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"docx-html", "video", "image", "image-pdf", "pdf-jpg"}, names)
}

type namedStrategy struct {
	pairMatcher
	name string
}

func (n namedStrategy) Name() string { return n.name }
func (n namedStrategy) Convert(context.Context, Job) (Result, error) {
	return Result{}, nil
}

func TestTable_FirstMatchWins(t *testing.T) {
	first := namedStrategy{pairMatcher{newFormatSet("png"), newFormatSet("pdf")}, "first"}
	second := namedStrategy{pairMatcher{newFormatSet("png", "jpg"), newFormatSet("pdf")}, "second"}
	table := NewTable(first, second)

	s, err := table.Lookup("png", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "first", s.Name())

	s, err = table.Lookup("jpg", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "second", s.Name())
}
