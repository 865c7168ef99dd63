package store

import "testing"

func TestTallyVotes(t *testing.T) {
	cases := []struct {
		name      string
		values    []int
		score     int
		upvotes   int
		downvotes int
	}{
		{name: "empty", values: nil},
		{name: "all up", values: []int{1, 1, 1}, score: 3, upvotes: 3},
		{name: "mixed", values: []int{1, 1, -1, 0}, score: 1, upvotes: 2, downvotes: 1},
		{name: "retracted only", values: []int{0, 0}},
		{name: "net negative", values: []int{-1, -1, 1}, score: -1, upvotes: 1, downvotes: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, upvotes, downvotes := tallyVotes(tc.values)
			if score != tc.score || upvotes != tc.upvotes || downvotes != tc.downvotes {
				t.Fatalf("tallyVotes(%v) = (%d, %d, %d), want (%d, %d, %d)",
					tc.values, score, upvotes, downvotes, tc.score, tc.upvotes, tc.downvotes)
			}
			if score != upvotes-downvotes {
				t.Fatalf("score invariant broken: %d != %d - %d", score, upvotes, downvotes)
			}
		})
	}
}

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		name  string
		done  int
		total int
		want  int
	}{
		{name: "empty list is zero", done: 0, total: 0, want: 0},
		{name: "none done", done: 0, total: 4, want: 0},
		{name: "two of three rounds up", done: 2, total: 3, want: 67},
		{name: "one of three rounds down", done: 1, total: 3, want: 33},
		{name: "half rounds up", done: 1, total: 8, want: 13},
		{name: "one of two", done: 1, total: 2, want: 50},
		{name: "all done", done: 5, total: 5, want: 100},
		{name: "one of six", done: 1, total: 6, want: 17},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := progressPercent(tc.done, tc.total); got != tc.want {
				t.Fatalf("progressPercent(%d, %d) = %d, want %d", tc.done, tc.total, got, tc.want)
			}
		})
	}
}
