package scheduler

// unit is one atomic piece of work for the placement search: a single
// period, or a contiguous two-period lab block.
type unit struct {
	course Course
	double bool
}

// expand turns each course's weekly hour requirement into an ordered
// list of units. Lab hours pair up into double blocks first, with an
// odd trailing hour becoming a single; lecture hours are all singles.
// Emission order follows course input order, so earlier courses get
// first access to scarce slots.
func expand(courses []Course) []unit {
	var units []unit
	for _, c := range courses {
		if c.Hours <= 0 {
			continue
		}
		if c.Lab {
			for i := 0; i < c.Hours/2; i++ {
				units = append(units, unit{course: c, double: true})
			}
			if c.Hours%2 == 1 {
				units = append(units, unit{course: c})
			}
			continue
		}
		for i := 0; i < c.Hours; i++ {
			units = append(units, unit{course: c})
		}
	}
	return units
}
