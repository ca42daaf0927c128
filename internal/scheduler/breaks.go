package scheduler

// BreakRule mirrors the two legacy break-configuration shapes found in
// stored settings. Exactly one shape is expected per rule; both are
// converted into a Window at ingestion so the placement loop only ever
// sees the canonical form.
type BreakRule struct {
	StartAfterPeriod *int
	Minutes          int
	StartPeriod      *int
	Length           int
}

// Window is the canonical break representation: Length periods starting
// at Start (1-based). A zero Window blocks nothing.
type Window struct {
	Start  int
	Length int
}

// Covers reports whether period p falls inside the window.
func (w Window) Covers(p int) bool {
	return w.Start > 0 && p >= w.Start && p < w.Start+w.Length
}

// NormalizeBreak converts a legacy break rule into a canonical Window.
// A nil rule, or one where neither shape yields a positive length,
// normalizes to the empty window.
func NormalizeBreak(rule *BreakRule) Window {
	if rule == nil {
		return Window{}
	}
	if rule.StartAfterPeriod != nil && rule.Minutes > 0 {
		return Window{Start: *rule.StartAfterPeriod + 1, Length: 1}
	}
	if rule.StartPeriod != nil {
		length := rule.Length
		if length <= 0 && rule.Minutes > 0 {
			length = 1
		}
		if length > 0 {
			return Window{Start: *rule.StartPeriod, Length: length}
		}
	}
	return Window{}
}

// Day is one working day after break normalization.
type Day struct {
	Number  int
	Periods int
	Breaks  []Window
}

// IsBreak reports whether period p is blocked by any break window.
func (d Day) IsBreak(p int) bool {
	for _, w := range d.Breaks {
		if w.Covers(p) {
			return true
		}
	}
	return false
}
