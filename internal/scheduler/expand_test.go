package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandLectureEmitsSingles(t *testing.T) {
	units := expand([]Course{{ID: "c1", Code: "MATH", Hours: 4}})
	require.Len(t, units, 4)
	for _, u := range units {
		assert.False(t, u.double)
		assert.Equal(t, "c1", u.course.ID)
	}
}

func TestExpandLabPairsWithOddTrailingSingle(t *testing.T) {
	units := expand([]Course{{ID: "c1", Code: "PHY", Lab: true, Hours: 5}})
	require.Len(t, units, 3)
	assert.True(t, units[0].double)
	assert.True(t, units[1].double)
	assert.False(t, units[2].double)
}

func TestExpandPreservesCourseOrder(t *testing.T) {
	units := expand([]Course{
		{ID: "a", Hours: 1},
		{ID: "b", Lab: true, Hours: 2},
		{ID: "c", Hours: 2},
	})
	require.Len(t, units, 4)
	assert.Equal(t, "a", units[0].course.ID)
	assert.Equal(t, "b", units[1].course.ID)
	assert.True(t, units[1].double)
	assert.Equal(t, "c", units[2].course.ID)
	assert.Equal(t, "c", units[3].course.ID)
}

func TestExpandSkipsZeroHours(t *testing.T) {
	assert.Empty(t, expand([]Course{{ID: "a", Hours: 0}, {ID: "b", Hours: -1}}))
}
