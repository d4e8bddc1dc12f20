package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"bookhub-loans/internal/usecase/queries"
)

type LoanResponse struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"userId"`
	BookID        uuid.UUID  `json:"bookId"`
	BookTitle     string     `json:"bookTitle"`
	UserEmail     string     `json:"userEmail"`
	LoanDate      time.Time  `json:"loanDate"`
	DueDate       time.Time  `json:"dueDate"`
	ReturnDate    *time.Time `json:"returnDate,omitempty"`
	Status        string     `json:"status"`
	PenaltyAmount float64    `json:"penaltyAmount"`
}

func FromLoanView(rm *queries.LoanView) *LoanResponse {
	resp := &LoanResponse{}
	_ = copier.Copy(resp, rm)
	resp.PenaltyAmount = float64(rm.PenaltyCents) / 100
	return resp
}

func FromLoanViews(rms []*queries.LoanView) []*LoanResponse {
	resp := make([]*LoanResponse, len(rms))
	for i, rm := range rms {
		resp[i] = FromLoanView(rm)
	}
	return resp
}
