package scheduler

import "math/rand"

// teacherCandidates returns the ordered teacher ids to try for a
// course. A pinned teacher is always the only candidate. Otherwise
// teachers whose skill set contains the course code are tried in
// shuffled order, falling back to the whole pool when nobody lists the
// skill.
func teacherCandidates(course Course, teachers []Teacher, rng *rand.Rand) []string {
	if course.TeacherID != "" {
		return []string{course.TeacherID}
	}

	var skilled []string
	for _, t := range teachers {
		for _, s := range t.Skills {
			if s == course.Code {
				skilled = append(skilled, t.ID)
				break
			}
		}
	}
	if len(skilled) > 0 {
		shuffle(skilled, rng)
		return skilled
	}

	all := make([]string, 0, len(teachers))
	for _, t := range teachers {
		all = append(all, t.ID)
	}
	shuffle(all, rng)
	return all
}

// roomCandidates returns the ordered room ids to try for a unit. Lab
// blocks prefer lab rooms and singles prefer lecture rooms; an empty
// preferred pool falls back to every room.
func roomCandidates(double bool, rooms []Room, rng *rand.Rand) []string {
	var pool []string
	for _, r := range rooms {
		if r.Lab == double {
			pool = append(pool, r.ID)
		}
	}
	if len(pool) == 0 {
		pool = make([]string, 0, len(rooms))
		for _, r := range rooms {
			pool = append(pool, r.ID)
		}
	}
	shuffle(pool, rng)
	return pool
}

func shuffle(ids []string, rng *rand.Rand) {
	rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}
