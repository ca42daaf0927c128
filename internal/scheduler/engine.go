package scheduler

import "math/rand"

// Course is one weekly hour requirement for the class being built.
// TeacherID pins the course to a specific teacher when non-empty.
type Course struct {
	ID        string
	Code      string
	Lab       bool
	Hours     int
	TeacherID string
}

// Teacher is one candidate instructor.
type Teacher struct {
	ID          string
	Skills      []string
	MaxPerDay   int
	Unavailable []SlotRef
}

// SlotRef identifies one (day, period) cell.
type SlotRef struct {
	Day    int
	Period int
}

// Room is one candidate room.
type Room struct {
	ID  string
	Lab bool
}

// Slot is one committed placement.
type Slot struct {
	Day       int
	Period    int
	CourseID  string
	TeacherID string
	RoomID    string
}

// Input is the immutable snapshot one build runs against. Days must
// already carry normalized break windows, in working-day order.
type Input struct {
	Days     []Day
	Courses  []Course
	Teachers []Teacher
	Rooms    []Room
}

// Result is the outcome of one build. Placed counts committed slots
// (a double block contributes two); RequiredUnits and PlacedUnits count
// session units so unplaced work is visible without guessing.
type Result struct {
	Slots         []Slot
	Placed        int
	PlacedUnits   int
	RequiredUnits int
}

const defaultMaxPerDay = 6

// Build runs one first-fit generation pass over the input and returns
// the resulting grid. Units that fit nowhere are dropped silently and
// show up only as a PlacedUnits shortfall; the search never backtracks
// a committed slot. rng drives candidate shuffling only, so a fixed
// seed makes the chosen assignment reproducible.
func Build(in Input, rng *rand.Rand) Result {
	units := expand(in.Courses)
	occ := newOccupancy(in.Teachers)

	maxPerDay := make(map[string]int, len(in.Teachers))
	for _, t := range in.Teachers {
		limit := t.MaxPerDay
		if limit <= 0 {
			limit = defaultMaxPerDay
		}
		maxPerDay[t.ID] = limit
	}

	result := Result{RequiredUnits: len(units)}
	for _, u := range units {
		teachers := teacherCandidates(u.course, in.Teachers, rng)
		rooms := roomCandidates(u.double, in.Rooms, rng)
		if placed := placeUnit(&result, u, in.Days, teachers, rooms, maxPerDay, occ); placed {
			result.PlacedUnits++
		}
	}
	result.Placed = len(result.Slots)
	return result
}

// placeUnit scans day, room, teacher, period in that nesting order and
// commits the first combination that satisfies every constraint.
func placeUnit(result *Result, u unit, days []Day, teachers, rooms []string, maxPerDay map[string]int, occ *occupancy) bool {
	for _, day := range days {
		lastPeriod := day.Periods
		if u.double {
			lastPeriod--
		}
		for _, roomID := range rooms {
			for _, teacherID := range teachers {
				limit, ok := maxPerDay[teacherID]
				if !ok {
					limit = defaultMaxPerDay
				}
				need := 1
				if u.double {
					need = 2
				}
				if occ.loadOf(teacherID, day.Number)+need > limit {
					continue
				}
				for period := 1; period <= lastPeriod; period++ {
					if !occ.isFree(day, period, teacherID, roomID) {
						continue
					}
					if u.double && !occ.isFree(day, period+1, teacherID, roomID) {
						continue
					}

					occ.commit(day.Number, period, teacherID, roomID)
					result.Slots = append(result.Slots, Slot{
						Day:       day.Number,
						Period:    period,
						CourseID:  u.course.ID,
						TeacherID: teacherID,
						RoomID:    roomID,
					})
					if u.double {
						occ.commit(day.Number, period+1, teacherID, roomID)
						result.Slots = append(result.Slots, Slot{
							Day:       day.Number,
							Period:    period + 1,
							CourseID:  u.course.ID,
							TeacherID: teacherID,
							RoomID:    roomID,
						})
					}
					return true
				}
			}
		}
	}
	return false
}
