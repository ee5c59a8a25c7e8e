package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/legalqa/assistant/internal/models"
)

func TestBuildFAQsWhere(t *testing.T) {
	t.Run("nil filters", func(t *testing.T) {
		where, args := buildFAQsWhere(nil)
		assert.Empty(t, where)
		assert.Nil(t, args)
	})

	t.Run("no category", func(t *testing.T) {
		where, args := buildFAQsWhere(&models.ListFAQsFilters{Limit: 10})
		assert.Empty(t, where)
		assert.Nil(t, args)
	})

	t.Run("category", func(t *testing.T) {
		where, args := buildFAQsWhere(&models.ListFAQsFilters{Category: "Contract Law"})
		assert.Equal(t, " WHERE category = $1", where)
		assert.Equal(t, []any{"Contract Law"}, args)
	})
}
