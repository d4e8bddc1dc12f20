//go:build unit || e2e

package builder

import (
	"time"

	reqdto "bookhub-loans/internal/handler/dto/request"
	"bookhub-loans/internal/usecase/queries"

	"github.com/google/uuid"
)

type LoanBuilder struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	BookID       uuid.UUID
	BookTitle    string
	UserEmail    string
	LoanDate     time.Time
	DueDate      time.Time
	ReturnDate   *time.Time
	Status       string
	PenaltyCents int64
	DurationDays int
}

func NewLoanBuilder() *LoanBuilder {
	loanDate := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &LoanBuilder{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		BookID:       uuid.New(),
		BookTitle:    "The Go Programming Language",
		UserEmail:    "reader@example.com",
		LoanDate:     loanDate,
		DueDate:      loanDate.AddDate(0, 0, 14),
		Status:       "Active",
		DurationDays: 14,
	}
}

func (b *LoanBuilder) With(mutate func(*LoanBuilder)) *LoanBuilder {
	mutate(b)
	return b
}

func (b *LoanBuilder) BuildCreateRequestDTO() reqdto.CreateLoanRequest {
	return reqdto.CreateLoanRequest{
		UserID:       b.UserID,
		BookID:       b.BookID,
		DurationDays: b.DurationDays,
	}
}

func (b *LoanBuilder) BuildView() *queries.LoanView {
	return &queries.LoanView{
		ID:           b.ID,
		UserID:       b.UserID,
		BookID:       b.BookID,
		BookTitle:    b.BookTitle,
		UserEmail:    b.UserEmail,
		LoanDate:     b.LoanDate,
		DueDate:      b.DueDate,
		ReturnDate:   b.ReturnDate,
		Status:       b.Status,
		PenaltyCents: b.PenaltyCents,
	}
}
