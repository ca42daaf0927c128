package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

func TestTeacherCandidatesPinned(t *testing.T) {
	course := Course{Code: "MATH", TeacherID: "t9"}
	teachers := []Teacher{{ID: "t1", Skills: []string{"MATH"}}, {ID: "t2"}}
	assert.Equal(t, []string{"t9"}, teacherCandidates(course, teachers, testRNG()))
}

func TestTeacherCandidatesSkillMatch(t *testing.T) {
	course := Course{Code: "MATH"}
	teachers := []Teacher{
		{ID: "t1", Skills: []string{"BIO"}},
		{ID: "t2", Skills: []string{"MATH", "PHY"}},
		{ID: "t3", Skills: []string{"MATH"}},
	}
	got := teacherCandidates(course, teachers, testRNG())
	assert.ElementsMatch(t, []string{"t2", "t3"}, got)
}

func TestTeacherCandidatesFallbackToPool(t *testing.T) {
	course := Course{Code: "ART"}
	teachers := []Teacher{{ID: "t1", Skills: []string{"BIO"}}, {ID: "t2"}}
	got := teacherCandidates(course, teachers, testRNG())
	assert.ElementsMatch(t, []string{"t1", "t2"}, got)
}

func TestRoomCandidatesMatchKind(t *testing.T) {
	rooms := []Room{{ID: "r1"}, {ID: "r2", Lab: true}, {ID: "r3"}}
	assert.ElementsMatch(t, []string{"r2"}, roomCandidates(true, rooms, testRNG()))
	assert.ElementsMatch(t, []string{"r1", "r3"}, roomCandidates(false, rooms, testRNG()))
}

func TestRoomCandidatesFallbackToFullPool(t *testing.T) {
	rooms := []Room{{ID: "r1"}, {ID: "r2"}}
	got := roomCandidates(true, rooms, testRNG())
	assert.ElementsMatch(t, []string{"r1", "r2"}, got)
}

func TestShuffleIsSeedDeterministic(t *testing.T) {
	course := Course{Code: "MATH"}
	teachers := []Teacher{
		{ID: "t1", Skills: []string{"MATH"}},
		{ID: "t2", Skills: []string{"MATH"}},
		{ID: "t3", Skills: []string{"MATH"}},
		{ID: "t4", Skills: []string{"MATH"}},
	}
	first := teacherCandidates(course, teachers, rand.New(rand.NewSource(7)))
	second := teacherCandidates(course, teachers, rand.New(rand.NewSource(7)))
	require.Equal(t, first, second)
}
