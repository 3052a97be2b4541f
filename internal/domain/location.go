package domain

// Location is a resolved position of a handset.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Clamped returns the location with both coordinates limited to [0, 1],
// the range the map renderer expects.
func (l Location) Clamped() Location {
	return Location{
		Latitude:  clamp01(l.Latitude),
		Longitude: clamp01(l.Longitude),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
