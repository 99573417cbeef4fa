package proximity

import "testing"

func TestProgress(t *testing.T) {
	cases := []struct {
		name     string
		distance float64
		radius   float64
		want     float64
	}{
		{"at center", 0, 1000, 100},
		{"halfway", 500, 1000, 50},
		{"at radius", 1000, 1000, 0},
		{"beyond radius", 1500, 1000, 0},
		{"zero radius", 100, 0, 0},
	}
	for _, tc := range cases {
		if got := Progress(tc.distance, tc.radius); got != tc.want {
			t.Errorf("%s: Progress(%v, %v) = %v, want %v", tc.name, tc.distance, tc.radius, got, tc.want)
		}
	}
}

func TestLabelBuckets(t *testing.T) {
	cases := []struct {
		progress float64
		want     string
	}{
		{100, "Very Close"},
		{75, "Very Close"},
		{74.9, "Nearby"},
		{50, "Nearby"},
		{25, "Within Area"},
		{10, "Far (within range)"},
		{0, ""},
	}
	for _, tc := range cases {
		if got := Label(tc.progress); got != tc.want {
			t.Errorf("Label(%v) = %q, want %q", tc.progress, got, tc.want)
		}
	}
}
