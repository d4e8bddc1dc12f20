package loan

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	MinDurationDays = 1
	MaxDurationDays = 21
)

var (
	ErrMissingUser     = errors.New("loan requires a user")
	ErrMissingBook     = errors.New("loan requires a book")
	ErrAlreadyReturned = errors.New("loan is already returned")
	ErrNotYetDue       = errors.New("loan is not past its due date")
	ErrNotActive       = errors.New("loan is not active")
)

// Loan is the aggregate for a single borrowing. Book title and user email are
// snapshots taken at creation time and never refreshed.
type Loan struct {
	id         uuid.UUID
	userID     uuid.UUID
	bookID     uuid.UUID
	bookTitle  string
	userEmail  string
	loanDate   time.Time
	dueDate    time.Time
	returnDate *time.Time
	status     Status
	penalty    Money
}

// ClampDuration bounds a requested loan duration to [MinDurationDays, MaxDurationDays].
func ClampDuration(requestedDays int) int {
	if requestedDays < MinDurationDays {
		return MinDurationDays
	}
	if requestedDays > MaxDurationDays {
		return MaxDurationDays
	}
	return requestedDays
}

func NewLoan(userID, bookID uuid.UUID, bookTitle, userEmail string, requestedDays int, now time.Time) (*Loan, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if bookID == uuid.Nil {
		return nil, ErrMissingBook
	}

	days := ClampDuration(requestedDays)

	return &Loan{
		id:        uuid.New(),
		userID:    userID,
		bookID:    bookID,
		bookTitle: bookTitle,
		userEmail: userEmail,
		loanDate:  now,
		dueDate:   now.AddDate(0, 0, days),
		status:    StatusActive,
		penalty:   ZeroMoney(),
	}, nil
}

func ReconstructLoan(
	id, userID, bookID uuid.UUID,
	bookTitle, userEmail string,
	loanDate, dueDate time.Time,
	returnDate *time.Time,
	status Status,
	penalty Money,
) *Loan {
	return &Loan{
		id:         id,
		userID:     userID,
		bookID:     bookID,
		bookTitle:  bookTitle,
		userEmail:  userEmail,
		loanDate:   loanDate,
		dueDate:    dueDate,
		returnDate: returnDate,
		status:     status,
		penalty:    penalty,
	}
}

// Return closes the loan. It is a one-shot transition: a returned loan can
// never be returned again or reopened.
func (l *Loan) Return(now time.Time, calc PenaltyCalculator) error {
	if l.status == StatusReturned {
		return ErrAlreadyReturned
	}

	penalty, err := NewMoney(calc.PenaltyCents(l.dueDate, now))
	if err != nil {
		return err
	}

	returnedAt := now
	l.returnDate = &returnedAt
	l.status = StatusReturned
	l.penalty = penalty
	return nil
}

// MarkOverdue transitions Active to Overdue once the due date has passed.
// Return undoes nothing here: an overdue loan is still returnable.
func (l *Loan) MarkOverdue(now time.Time) error {
	if l.status != StatusActive {
		return ErrNotActive
	}
	if !now.After(l.dueDate) {
		return ErrNotYetDue
	}
	l.status = StatusOverdue
	return nil
}

func (l *Loan) IsReturned() bool {
	return l.status == StatusReturned
}

// IsOutstanding reports whether the loan still counts against the
// borrower's limit.
func (l *Loan) IsOutstanding() bool {
	return l.status == StatusActive || l.status == StatusOverdue
}

func (l *Loan) ID() uuid.UUID          { return l.id }
func (l *Loan) UserID() uuid.UUID      { return l.userID }
func (l *Loan) BookID() uuid.UUID      { return l.bookID }
func (l *Loan) BookTitle() string      { return l.bookTitle }
func (l *Loan) UserEmail() string      { return l.userEmail }
func (l *Loan) LoanDate() time.Time    { return l.loanDate }
func (l *Loan) DueDate() time.Time     { return l.dueDate }
func (l *Loan) ReturnDate() *time.Time { return l.returnDate }
func (l *Loan) Status() Status         { return l.status }
func (l *Loan) Penalty() Money         { return l.penalty }
