package walk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWalkToken(t *testing.T) {
	w := New(42)
	assert.Equal(t, uint32(42), w.SourceIndex())
	assert.False(t, w.HasLeftSource())

	d := w.Departed()
	assert.True(t, d.HasLeftSource())
	assert.Equal(t, uint32(42), d.SourceIndex(), "departing keeps the source index")

	r := d.Reset()
	assert.False(t, r.HasLeftSource())
	assert.Equal(t, w, r)
}

func TestWalkTokenMaxSourceIndex(t *testing.T) {
	w := New(MaxSources - 1)
	assert.Equal(t, MaxSources-1, w.SourceIndex())
	assert.False(t, w.HasLeftSource())
	assert.Equal(t, MaxSources-1, w.Departed().SourceIndex())
}
