package queries

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LoanView is the read model returned to callers on every loan operation.
type LoanView struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	BookID       uuid.UUID  `json:"book_id"`
	BookTitle    string     `json:"book_title"`
	UserEmail    string     `json:"user_email"`
	LoanDate     time.Time  `json:"loan_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
	Status       string     `json:"status"`
	PenaltyCents int64      `json:"penalty_cents"`
}

type LoanQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*LoanView, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*LoanView, error)

	// ListOutstandingByUser returns only the loans still counting against
	// the user's borrowing limit (Active or Overdue).
	ListOutstandingByUser(ctx context.Context, userID uuid.UUID) ([]*LoanView, error)
	ListOverdue(ctx context.Context) ([]*LoanView, error)
	ListAll(ctx context.Context) ([]*LoanView, error)
}

type LoanReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*LoanView, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*LoanView, error)
	FindOutstandingByUserID(ctx context.Context, userID uuid.UUID) ([]*LoanView, error)
	FindOverdue(ctx context.Context) ([]*LoanView, error)
	FindAll(ctx context.Context) ([]*LoanView, error)
}

type loanQueriesImpl struct {
	store LoanReadStore
}

func NewLoanQueries(store LoanReadStore) LoanQueries {
	return &loanQueriesImpl{store: store}
}

func (q *loanQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*LoanView, error) {
	return q.store.FindByID(ctx, id)
}

func (q *loanQueriesImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]*LoanView, error) {
	return q.store.FindByUserID(ctx, userID)
}

func (q *loanQueriesImpl) ListOutstandingByUser(ctx context.Context, userID uuid.UUID) ([]*LoanView, error) {
	return q.store.FindOutstandingByUserID(ctx, userID)
}

func (q *loanQueriesImpl) ListOverdue(ctx context.Context) ([]*LoanView, error) {
	return q.store.FindOverdue(ctx)
}

func (q *loanQueriesImpl) ListAll(ctx context.Context) ([]*LoanView, error) {
	return q.store.FindAll(ctx)
}
