package trend

// WindowChange holds the first and last close of a lookback window and the
// percentage change between them.
type WindowChange struct {
	First     float64
	Last      float64
	ChangePct float64
	Points    int
}

// FromCloses compares the first and last close of the window. A decline
// gives a negative ChangePct. Returns nil for an empty window or a
// non-positive first close.
func FromCloses(closes []float64) *WindowChange {
	if len(closes) == 0 {
		return nil
	}
	first := closes[0]
	last := closes[len(closes)-1]
	if first <= 0 {
		return nil
	}
	return &WindowChange{
		First:     first,
		Last:      last,
		ChangePct: PercentChange(first, last),
		Points:    len(closes),
	}
}

// PercentChange is (to - from) / from * 100.
func PercentChange(from, to float64) float64 {
	return (to - from) / from * 100
}
