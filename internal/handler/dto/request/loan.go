package request

import (
	"github.com/google/uuid"
)

type CreateLoanRequest struct {
	UserID       uuid.UUID `json:"user_id" binding:"required"`
	BookID       uuid.UUID `json:"book_id" binding:"required"`
	DurationDays int       `json:"duration_days" binding:"required,gt=0"`
}
