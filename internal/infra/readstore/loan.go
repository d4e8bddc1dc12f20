package readstore

import (
	"context"
	"errors"

	"bookhub-loans/internal/infra"
	"bookhub-loans/internal/infra/db"
	"bookhub-loans/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const selectViewColumns = `
SELECT id, user_id, book_id, book_title, user_email, loan_date, due_date, return_date, status, penalty_cents
FROM loans`

// LoanReadStore serves the query side straight from the loans table.
type LoanReadStore struct {
	db db.DBTX
}

func NewLoanReadStore(dbtx db.DBTX) *LoanReadStore {
	return &LoanReadStore{db: dbtx}
}

func (s *LoanReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.LoanView, error) {
	row := s.db.QueryRow(ctx, selectViewColumns+" WHERE id = $1", id)
	view, err := scanView(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapErr("loan not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapErr("failed to read loan", err)
	}
	return view, nil
}

func (s *LoanReadStore) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*queries.LoanView, error) {
	return s.list(ctx, selectViewColumns+" WHERE user_id = $1 ORDER BY loan_date DESC", userID)
}

func (s *LoanReadStore) FindOutstandingByUserID(ctx context.Context, userID uuid.UUID) ([]*queries.LoanView, error) {
	return s.list(ctx,
		selectViewColumns+" WHERE user_id = $1 AND status IN ('Active', 'Overdue') ORDER BY loan_date DESC",
		userID)
}

func (s *LoanReadStore) FindOverdue(ctx context.Context) ([]*queries.LoanView, error) {
	return s.list(ctx, selectViewColumns+" WHERE status = 'Overdue' ORDER BY due_date")
}

func (s *LoanReadStore) FindAll(ctx context.Context) ([]*queries.LoanView, error) {
	return s.list(ctx, selectViewColumns+" ORDER BY loan_date DESC")
}

func (s *LoanReadStore) list(ctx context.Context, sql string, args ...any) ([]*queries.LoanView, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, infra.WrapErr("failed to list loans", err)
	}
	defer rows.Close()

	result := make([]*queries.LoanView, 0)
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, infra.WrapErr("failed to scan loan row", err)
		}
		result = append(result, view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapErr("failed to iterate loan rows", err)
	}
	return result, nil
}

func scanView(row pgx.Row) (*queries.LoanView, error) {
	var view queries.LoanView
	err := row.Scan(&view.ID, &view.UserID, &view.BookID, &view.BookTitle, &view.UserEmail,
		&view.LoanDate, &view.DueDate, &view.ReturnDate, &view.Status, &view.PenaltyCents)
	if err != nil {
		return nil, err
	}
	return &view, nil
}
