package dataloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row map[string]any

func byParent(r row) any { return r["parent"] }

func TestDistinct(t *testing.T) {
	t.Parallel()

	rows := []row{{"id": 3}, {"id": 1}, {"id": 3}, {"id": nil}, {"id": 2}, {"id": 1}}
	keys := Distinct(rows, func(r row) any { return r["id"] })
	assert.Equal(t, []any{3, 1, 2}, keys)

	assert.Empty(t, Distinct([]row(nil), func(r row) any { return r["id"] }))
}

func TestGroupByKey(t *testing.T) {
	t.Parallel()

	t.Run("keeps order within groups", func(t *testing.T) {
		t.Parallel()
		rows := []row{
			{"parent": 1, "name": "a"},
			{"parent": 2, "name": "b"},
			{"parent": 1, "name": "c"},
		}
		groups := GroupByKey(rows, byParent)
		require.Len(t, groups, 2)
		require.Len(t, groups[1], 2)
		assert.Equal(t, "a", groups[1][0]["name"])
		assert.Equal(t, "c", groups[1][1]["name"])
		assert.Len(t, groups[2], 1)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, GroupByKey([]row{}, byParent))
	})
}

func TestOrderGroupsByKeys(t *testing.T) {
	t.Parallel()

	rows := []row{{"parent": "x"}, {"parent": "z"}, {"parent": "x"}}
	ordered := OrderGroupsByKeys([]any{"z", "y", "x"}, GroupByKey(rows, byParent))
	require.Len(t, ordered, 3)
	assert.Len(t, ordered[0], 1)
	assert.Nil(t, ordered[1])
	assert.Len(t, ordered[2], 2)
}
