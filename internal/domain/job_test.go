package domain

import "testing"

func TestNormalizeAddress(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"123 Main St, Springfield", "123 main st, springfield"},
		{"  123   Main St ", "123 main st"},
		{"123\tMain\nSt", "123 main st"},
		{"123 MAIN ST", "123 main st"},
	}

	for _, tc := range cases {
		if got := NormalizeAddress(tc.in); got != tc.want {
			t.Errorf("NormalizeAddress(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPriorityRankOrdering(t *testing.T) {
	order := []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("Rank(%s) = %d, not above Rank(%s) = %d",
				order[i], order[i].Rank(), order[i-1], order[i-1].Rank())
		}
	}

	// unknown values rank with the lowest tier
	if got := Priority("rush").Rank(); got != PriorityLow.Rank() {
		t.Errorf("unknown priority rank = %d, want %d", got, PriorityLow.Rank())
	}
}

func TestCoordinateDistanceMeters(t *testing.T) {
	// Paris to London, roughly 344 km great circle.
	paris := Coordinate{Lat: 48.8566, Lng: 2.3522}
	london := Coordinate{Lat: 51.5074, Lng: -0.1278}

	got := paris.DistanceMeters(london)
	if got < 330_000 || got > 350_000 {
		t.Errorf("DistanceMeters = %.0f, want ~344000", got)
	}

	if d := paris.DistanceMeters(paris); d != 0 {
		t.Errorf("zero distance = %f, want 0", d)
	}
}
