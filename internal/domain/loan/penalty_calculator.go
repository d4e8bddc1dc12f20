package loan

import "time"

type PenaltyCalculator interface {
	PenaltyCents(dueDate, returnDate time.Time) int64
}

// DefaultPenaltyCalculator charges a flat rate per full day late.
// Returning on or before the due date costs nothing.
type DefaultPenaltyCalculator struct {
	RatePerDayCents int64
}

func NewDefaultPenaltyCalculator() *DefaultPenaltyCalculator {
	return &DefaultPenaltyCalculator{
		RatePerDayCents: 50,
	}
}

func NewPenaltyCalculator(ratePerDayCents int64) *DefaultPenaltyCalculator {
	return &DefaultPenaltyCalculator{RatePerDayCents: ratePerDayCents}
}

func (pc *DefaultPenaltyCalculator) PenaltyCents(dueDate, returnDate time.Time) int64 {
	if !returnDate.After(dueDate) {
		return 0
	}
	daysLate := int64(returnDate.Sub(dueDate).Hours() / 24)
	return daysLate * pc.RatePerDayCents
}
