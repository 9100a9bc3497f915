package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageCatalogDefaults(t *testing.T) {
	c := NewStageCatalog(nil)

	assert.Len(t, c.Stages(), 7)
	assert.Equal(t, "new", c.DefaultKey())
	assert.True(t, c.IsClosedWon("CLIENT"))
	assert.True(t, c.IsOpen("New"))
	assert.False(t, c.IsClosedWon("lost"))
	assert.False(t, c.IsOpen("unknown"))
}

// TestStageCatalogNormalizesKeys - chaves minúsculas, sem duplicadas nem vazias
func TestStageCatalogNormalizesKeys(t *testing.T) {
	c := NewStageCatalog([]Stage{
		{Key: " Lead "},
		{Key: "lead", Title: "Duplicada"},
		{Key: ""},
		{Key: "Won", Title: "Ganho", ClosedWon: true},
	})

	stages := c.Stages()
	assert.Len(t, stages, 2)
	assert.Equal(t, "lead", stages[0].Key)
	assert.Equal(t, "lead", stages[0].Title)
	assert.Equal(t, "won", stages[1].Key)

	// sem etapa aberta, o padrão é a primeira
	assert.Equal(t, "lead", c.DefaultKey())

	s, ok := c.Lookup("WON")
	assert.True(t, ok)
	assert.Equal(t, "Ganho", s.Title)
}

func TestStageCatalogStagesIsACopy(t *testing.T) {
	c := NewStageCatalog(nil)
	stages := c.Stages()
	stages[0].Key = "changed"

	assert.Equal(t, "new", c.Stages()[0].Key)
}
