package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestNormalizeBreakStartAfterPeriod(t *testing.T) {
	w := NormalizeBreak(&BreakRule{StartAfterPeriod: intPtr(2), Minutes: 15})
	assert.Equal(t, Window{Start: 3, Length: 1}, w)
	assert.True(t, w.Covers(3))
	assert.False(t, w.Covers(2))
	assert.False(t, w.Covers(4))
}

func TestNormalizeBreakStartPeriodWithLength(t *testing.T) {
	w := NormalizeBreak(&BreakRule{StartPeriod: intPtr(4), Length: 2})
	assert.Equal(t, Window{Start: 4, Length: 2}, w)
	assert.True(t, w.Covers(4))
	assert.True(t, w.Covers(5))
	assert.False(t, w.Covers(6))
}

func TestNormalizeBreakStartPeriodMinutesOnly(t *testing.T) {
	w := NormalizeBreak(&BreakRule{StartPeriod: intPtr(5), Minutes: 45})
	assert.Equal(t, Window{Start: 5, Length: 1}, w)
}

func TestNormalizeBreakDisabled(t *testing.T) {
	assert.Equal(t, Window{}, NormalizeBreak(nil))
	assert.Equal(t, Window{}, NormalizeBreak(&BreakRule{StartAfterPeriod: intPtr(2)}))
	assert.Equal(t, Window{}, NormalizeBreak(&BreakRule{StartPeriod: intPtr(3)}))
	assert.False(t, NormalizeBreak(nil).Covers(1))
}

func TestDayIsBreak(t *testing.T) {
	day := Day{Number: 1, Periods: 6, Breaks: []Window{
		NormalizeBreak(&BreakRule{StartAfterPeriod: intPtr(2), Minutes: 15}),
		NormalizeBreak(&BreakRule{StartAfterPeriod: intPtr(4), Minutes: 45}),
	}}
	blocked := map[int]bool{3: true, 5: true}
	for p := 1; p <= 6; p++ {
		assert.Equal(t, blocked[p], day.IsBreak(p), "period %d", p)
	}
}
