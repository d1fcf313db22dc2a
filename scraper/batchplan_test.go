package scraper

import "testing"

func TestStartingBatch(t *testing.T) {
	cases := []struct {
		name    string
		largest int
		found   bool
		want    int
	}{
		{"no stored permits", 0, false, 0},
		{"mid-batch resumes same batch", 24, true, 2},
		{"batch boundary skips ahead", 29, true, 3},
		{"first slot resumes same batch", 30, true, 3},
		{"suffix zero", 0, true, 0},
		{"suffix nine completes batch zero", 9, true, 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := StartingBatch(c.largest, c.found); got != c.want {
				t.Fatalf("StartingBatch(%d, %v) = %d, want %d", c.largest, c.found, got, c.want)
			}
		})
	}
}
