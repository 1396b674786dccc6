package crawl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssignmentsInterleave(t *testing.T) {
	t.Parallel()

	got := Assignments(3, 2, 1, 6)
	require.Equal(t, []Assignment{
		{WorkerID: 0, Pages: []int{1, 4}},
		{WorkerID: 1, Pages: []int{2, 5}},
		{WorkerID: 2, Pages: []int{3, 6}},
	}, got)
}

func TestAssignmentsRespectMaxPage(t *testing.T) {
	t.Parallel()

	got := Assignments(3, 2, 1, 4)
	require.Equal(t, []Assignment{
		{WorkerID: 0, Pages: []int{1, 4}},
		{WorkerID: 1, Pages: []int{2}},
		{WorkerID: 2, Pages: []int{3}},
	}, got)
}

func TestAssignmentsDropEmptyWorkers(t *testing.T) {
	t.Parallel()

	got := Assignments(4, 5, 1, 2)
	require.Equal(t, []Assignment{
		{WorkerID: 0, Pages: []int{1}},
		{WorkerID: 1, Pages: []int{2}},
	}, got)
}

func TestAssignmentsDeepStart(t *testing.T) {
	t.Parallel()

	got := Assignments(2, 2, 101, 104)
	require.Equal(t, []Assignment{
		{WorkerID: 0, Pages: []int{101, 103}},
		{WorkerID: 1, Pages: []int{102, 104}},
	}, got)
}

func TestAssignmentsGuards(t *testing.T) {
	t.Parallel()

	require.Nil(t, Assignments(0, 5, 1, 10))
	require.Nil(t, Assignments(4, 0, 1, 10))
	require.Empty(t, Assignments(4, 5, 20, 10))
}

func TestAssignmentsClampStartPage(t *testing.T) {
	t.Parallel()

	got := Assignments(1, 2, 0, 2)
	require.Equal(t, []Assignment{
		{WorkerID: 0, Pages: []int{1, 2}},
	}, got)
}

func TestAssignmentsDisjointAndComplete(t *testing.T) {
	t.Parallel()

	const workers, ppw, start, max = 4, 5, 1, 20
	got := Assignments(workers, ppw, start, max)

	seen := map[int]bool{}
	for _, a := range got {
		for _, p := range a.Pages {
			require.False(t, seen[p], "page %d assigned twice", p)
			seen[p] = true
		}
	}
	for p := start; p <= max; p++ {
		require.True(t, seen[p], "page %d never assigned", p)
	}
}
