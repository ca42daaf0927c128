package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sixPeriodDay(number int) Day {
	return Day{Number: number, Periods: 6, Breaks: []Window{
		NormalizeBreak(&BreakRule{StartAfterPeriod: intPtr(2), Minutes: 15}),
		NormalizeBreak(&BreakRule{StartAfterPeriod: intPtr(4), Minutes: 45}),
	}}
}

// assertInvariants checks every grid property that must hold after a
// build: no teacher or room double booking, no break or unavailability
// violations, and daily load bounds.
func assertInvariants(t *testing.T, in Input, result Result) {
	t.Helper()

	days := make(map[int]Day, len(in.Days))
	for _, d := range in.Days {
		days[d.Number] = d
	}
	teacherAt := make(map[slotKey]map[string]bool)
	roomAt := make(map[slotKey]map[string]bool)
	load := make(map[loadKey]int)
	unavailable := make(map[string]map[slotKey]bool)
	limits := make(map[string]int)
	for _, teacher := range in.Teachers {
		limit := teacher.MaxPerDay
		if limit <= 0 {
			limit = defaultMaxPerDay
		}
		limits[teacher.ID] = limit
		set := make(map[slotKey]bool)
		for _, u := range teacher.Unavailable {
			set[slotKey{day: u.Day, period: u.Period}] = true
		}
		unavailable[teacher.ID] = set
	}

	for _, slot := range result.Slots {
		day, ok := days[slot.Day]
		require.True(t, ok, "slot on unknown day %d", slot.Day)
		assert.GreaterOrEqual(t, slot.Period, 1)
		assert.LessOrEqual(t, slot.Period, day.Periods)
		assert.False(t, day.IsBreak(slot.Period), "slot at break period %d on day %d", slot.Period, slot.Day)
		assert.False(t, unavailable[slot.TeacherID][slotKey{day: slot.Day, period: slot.Period}],
			"teacher %s placed at unavailable (%d,%d)", slot.TeacherID, slot.Day, slot.Period)

		key := slotKey{day: slot.Day, period: slot.Period}
		if teacherAt[key] == nil {
			teacherAt[key] = make(map[string]bool)
		}
		assert.False(t, teacherAt[key][slot.TeacherID], "teacher %s double booked at (%d,%d)", slot.TeacherID, slot.Day, slot.Period)
		teacherAt[key][slot.TeacherID] = true

		if roomAt[key] == nil {
			roomAt[key] = make(map[string]bool)
		}
		assert.False(t, roomAt[key][slot.RoomID], "room %s double booked at (%d,%d)", slot.RoomID, slot.Day, slot.Period)
		roomAt[key][slot.RoomID] = true

		load[loadKey{teacherID: slot.TeacherID, day: slot.Day}]++
	}

	for key, count := range load {
		assert.LessOrEqual(t, count, limits[key.teacherID], "teacher %s overloaded on day %d", key.teacherID, key.day)
	}
	assert.Equal(t, len(result.Slots), result.Placed)
	assert.LessOrEqual(t, result.PlacedUnits, result.RequiredUnits)
}

func TestBuildLectureAvoidsBreakPeriods(t *testing.T) {
	in := Input{
		Days:     []Day{sixPeriodDay(1)},
		Courses:  []Course{{ID: "c1", Code: "MATH", Hours: 4}},
		Teachers: []Teacher{{ID: "t1", Skills: []string{"MATH"}, MaxPerDay: 6}},
		Rooms:    []Room{{ID: "r1"}},
	}
	result := Build(in, rand.New(rand.NewSource(1)))

	require.Len(t, result.Slots, 4)
	assert.Equal(t, 4, result.Placed)
	assert.Equal(t, 4, result.RequiredUnits)
	assert.Equal(t, 4, result.PlacedUnits)
	allowed := map[int]bool{1: true, 2: true, 4: true, 6: true}
	for _, slot := range result.Slots {
		assert.True(t, allowed[slot.Period], "period %d should be free of breaks", slot.Period)
	}
	assertInvariants(t, in, result)
}

func TestBuildLabBlockPairsContiguousPeriods(t *testing.T) {
	in := Input{
		Days:     []Day{sixPeriodDay(1)},
		Courses:  []Course{{ID: "c1", Code: "PHY", Lab: true, Hours: 3}},
		Teachers: []Teacher{{ID: "t1", Skills: []string{"PHY"}, MaxPerDay: 6}},
		Rooms:    []Room{{ID: "lab1", Lab: true}, {ID: "r1"}},
	}
	result := Build(in, rand.New(rand.NewSource(1)))

	require.Len(t, result.Slots, 3)
	assert.Equal(t, 2, result.RequiredUnits)
	assert.Equal(t, 2, result.PlacedUnits)

	first, second := result.Slots[0], result.Slots[1]
	assert.Equal(t, first.Day, second.Day)
	assert.Equal(t, first.Period+1, second.Period)
	assert.Equal(t, first.TeacherID, second.TeacherID)
	assert.Equal(t, first.RoomID, second.RoomID)
	assert.Equal(t, first.CourseID, second.CourseID)
	assertInvariants(t, in, result)
}

func TestBuildRespectsTeacherUnavailability(t *testing.T) {
	in := Input{
		Days:    []Day{{Number: 1, Periods: 4}},
		Courses: []Course{{ID: "c1", Code: "MATH", Hours: 1}},
		Teachers: []Teacher{{
			ID:          "t1",
			Skills:      []string{"MATH"},
			MaxPerDay:   6,
			Unavailable: []SlotRef{{Day: 1, Period: 1}},
		}},
		Rooms: []Room{{ID: "r1"}},
	}
	result := Build(in, rand.New(rand.NewSource(1)))

	require.Len(t, result.Slots, 1)
	assert.NotEqual(t, 1, result.Slots[0].Period)
	assertInvariants(t, in, result)
}

func TestBuildDropsUnitsBeyondDailyLoad(t *testing.T) {
	in := Input{
		Days: []Day{{Number: 1, Periods: 6}},
		Courses: []Course{
			{ID: "c1", Code: "MATH", Hours: 1, TeacherID: "t1"},
			{ID: "c2", Code: "BIO", Hours: 1, TeacherID: "t1"},
		},
		Teachers: []Teacher{{ID: "t1", MaxPerDay: 1}},
		Rooms:    []Room{{ID: "r1"}},
	}
	result := Build(in, rand.New(rand.NewSource(1)))

	require.Len(t, result.Slots, 1)
	assert.Equal(t, 1, result.Placed)
	assert.Equal(t, 1, result.PlacedUnits)
	assert.Equal(t, 2, result.RequiredUnits)
	assert.Equal(t, "c1", result.Slots[0].CourseID)
	assertInvariants(t, in, result)
}

func TestBuildLabFallsBackToGeneralRooms(t *testing.T) {
	in := Input{
		Days:     []Day{{Number: 1, Periods: 6}},
		Courses:  []Course{{ID: "c1", Code: "CHEM", Lab: true, Hours: 2}},
		Teachers: []Teacher{{ID: "t1", Skills: []string{"CHEM"}, MaxPerDay: 6}},
		Rooms:    []Room{{ID: "r1"}, {ID: "r2"}},
	}
	result := Build(in, rand.New(rand.NewSource(1)))

	require.Len(t, result.Slots, 2)
	assert.Equal(t, 1, result.PlacedUnits)
	assertInvariants(t, in, result)
}

func TestBuildDoubleNeverSplitsAcrossBreak(t *testing.T) {
	// Breaks at 3 and 5 leave no contiguous free pair except (1,2).
	in := Input{
		Days:     []Day{sixPeriodDay(1)},
		Courses:  []Course{{ID: "c1", Code: "PHY", Lab: true, Hours: 4}},
		Teachers: []Teacher{{ID: "t1", Skills: []string{"PHY"}, MaxPerDay: 6}},
		Rooms:    []Room{{ID: "lab1", Lab: true}},
	}
	result := Build(in, rand.New(rand.NewSource(3)))

	// Only one of the two double blocks fits.
	assert.Equal(t, 2, result.RequiredUnits)
	assert.Equal(t, 1, result.PlacedUnits)
	require.Len(t, result.Slots, 2)
	assert.Equal(t, 1, result.Slots[0].Period)
	assert.Equal(t, 2, result.Slots[1].Period)
	assertInvariants(t, in, result)
}

func TestBuildSpreadsAcrossRoomsAndTeachers(t *testing.T) {
	in := Input{
		Days: []Day{sixPeriodDay(1), sixPeriodDay(2), sixPeriodDay(3)},
		Courses: []Course{
			{ID: "c1", Code: "MATH", Hours: 4},
			{ID: "c2", Code: "BIO", Hours: 4},
			{ID: "c3", Code: "PHY", Lab: true, Hours: 4},
		},
		Teachers: []Teacher{
			{ID: "t1", Skills: []string{"MATH"}, MaxPerDay: 4},
			{ID: "t2", Skills: []string{"BIO"}, MaxPerDay: 4},
			{ID: "t3", Skills: []string{"PHY"}, MaxPerDay: 4},
		},
		Rooms: []Room{{ID: "r1"}, {ID: "r2"}, {ID: "lab1", Lab: true}},
	}
	result := Build(in, rand.New(rand.NewSource(99)))

	assert.Equal(t, 10, result.RequiredUnits)
	assert.Equal(t, 10, result.PlacedUnits)
	assert.Equal(t, 12, result.Placed)
	assertInvariants(t, in, result)
}

func TestBuildIsReproducibleForFixedSeed(t *testing.T) {
	in := Input{
		Days: []Day{sixPeriodDay(1), sixPeriodDay(2)},
		Courses: []Course{
			{ID: "c1", Code: "MATH", Hours: 3},
			{ID: "c2", Code: "BIO", Hours: 3},
		},
		Teachers: []Teacher{
			{ID: "t1", Skills: []string{"MATH", "BIO"}, MaxPerDay: 6},
			{ID: "t2", Skills: []string{"MATH", "BIO"}, MaxPerDay: 6},
		},
		Rooms: []Room{{ID: "r1"}, {ID: "r2"}},
	}
	first := Build(in, rand.New(rand.NewSource(5)))
	second := Build(in, rand.New(rand.NewSource(5)))
	assert.Equal(t, first, second)
}

func TestBuildWithNoSettingsDaysPlacesNothing(t *testing.T) {
	in := Input{
		Courses:  []Course{{ID: "c1", Code: "MATH", Hours: 2}},
		Teachers: []Teacher{{ID: "t1", MaxPerDay: 6}},
		Rooms:    []Room{{ID: "r1"}},
	}
	result := Build(in, rand.New(rand.NewSource(1)))
	assert.Empty(t, result.Slots)
	assert.Equal(t, 2, result.RequiredUnits)
	assert.Equal(t, 0, result.PlacedUnits)
}
