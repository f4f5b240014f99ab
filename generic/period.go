package generic

// =============================================================================
// PERIOD - Inclusive range of days
// =============================================================================

// Period bounds a query over days, e.g. the launches of a user in a month.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// Validate rejects periods that end before they start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return &InvalidInputError{Field: "period", Value: p.String(), Reason: "end before start"}
	}
	return nil
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
