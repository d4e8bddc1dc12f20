package loan

import "errors"

type Status string

const (
	StatusActive   Status = "Active"
	StatusOverdue  Status = "Overdue"
	StatusReturned Status = "Returned"
)

var ErrInvalidStatus = errors.New("invalid loan status")

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusOverdue, StatusReturned:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// Money is a non-negative amount in cents.
type Money struct {
	cents int64
}

func NewMoney(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, errors.New("money cannot be negative")
	}
	return Money{cents: cents}, nil
}

func ZeroMoney() Money {
	return Money{}
}

func (m Money) Cents() int64 {
	return m.cents
}

func (m Money) Amount() float64 {
	return float64(m.cents) / 100.0
}

func (m Money) IsZero() bool {
	return m.cents == 0
}
