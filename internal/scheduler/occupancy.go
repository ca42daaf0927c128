package scheduler

// slotKey addresses one (day, period) cell of the week.
type slotKey struct {
	day    int
	period int
}

// loadKey addresses one teacher's counter for one day.
type loadKey struct {
	teacherID string
	day       int
}

// occupancy is the run-scoped availability index. It is created fresh
// for every build, owned by that build alone, and discarded when the
// build returns. There is no undo operation since placement never
// backtracks a committed slot.
type occupancy struct {
	busyTeachers map[slotKey]map[string]struct{}
	busyRooms    map[slotKey]map[string]struct{}
	unavailable  map[string]map[slotKey]struct{}
	load         map[loadKey]int
}

func newOccupancy(teachers []Teacher) *occupancy {
	occ := &occupancy{
		busyTeachers: make(map[slotKey]map[string]struct{}),
		busyRooms:    make(map[slotKey]map[string]struct{}),
		unavailable:  make(map[string]map[slotKey]struct{}),
		load:         make(map[loadKey]int),
	}
	for _, t := range teachers {
		if len(t.Unavailable) == 0 {
			continue
		}
		set := make(map[slotKey]struct{}, len(t.Unavailable))
		for _, u := range t.Unavailable {
			set[slotKey{day: u.Day, period: u.Period}] = struct{}{}
		}
		occ.unavailable[t.ID] = set
	}
	return occ
}

// isFree reports whether the teacher and room are both available at
// (day, period) and the period is not a break for that day.
func (o *occupancy) isFree(day Day, period int, teacherID, roomID string) bool {
	if period < 1 || period > day.Periods {
		return false
	}
	if day.IsBreak(period) {
		return false
	}
	key := slotKey{day: day.Number, period: period}
	if set, ok := o.unavailable[teacherID]; ok {
		if _, blocked := set[key]; blocked {
			return false
		}
	}
	if _, busy := o.busyTeachers[key][teacherID]; busy {
		return false
	}
	if _, busy := o.busyRooms[key][roomID]; busy {
		return false
	}
	return true
}

// loadOf returns the teacher's committed period count for the day.
func (o *occupancy) loadOf(teacherID string, day int) int {
	return o.load[loadKey{teacherID: teacherID, day: day}]
}

// commit marks teacher and room busy at (day, period) and bumps the
// teacher's daily counter.
func (o *occupancy) commit(day, period int, teacherID, roomID string) {
	key := slotKey{day: day, period: period}
	if o.busyTeachers[key] == nil {
		o.busyTeachers[key] = make(map[string]struct{})
	}
	o.busyTeachers[key][teacherID] = struct{}{}
	if o.busyRooms[key] == nil {
		o.busyRooms[key] = make(map[string]struct{})
	}
	o.busyRooms[key][roomID] = struct{}{}
	o.load[loadKey{teacherID: teacherID, day: day}]++
}
