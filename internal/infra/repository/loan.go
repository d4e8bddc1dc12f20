package repository

import (
	"context"
	"errors"
	"time"

	"bookhub-loans/internal/domain/loan"
	"bookhub-loans/internal/infra"
	"bookhub-loans/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Expected schema:
//
//	CREATE TABLE loans (
//	    id              uuid PRIMARY KEY,
//	    user_id         uuid NOT NULL,
//	    book_id         uuid NOT NULL,
//	    book_title      text NOT NULL,
//	    user_email      text NOT NULL,
//	    loan_date       timestamptz NOT NULL,
//	    due_date        timestamptz NOT NULL,
//	    return_date     timestamptz,
//	    status          text NOT NULL,
//	    penalty_cents   bigint NOT NULL DEFAULT 0,
//	    idempotency_key uuid UNIQUE
//	);
//	CREATE INDEX loans_user_outstanding_idx ON loans (user_id) WHERE status IN ('Active', 'Overdue');

const lockUserLoansSQL = `SELECT pg_advisory_xact_lock(hashtext($1::text))`

const createLoanSQL = `
INSERT INTO loans (id, user_id, book_id, book_title, user_email, loan_date, due_date, return_date, status, penalty_cents, idempotency_key)
SELECT $1, $2, $3, $4, $5, $6, $7, NULL, $8, $9, $10
WHERE (
    SELECT count(*) FROM loans
    WHERE user_id = $2 AND status IN ('Active', 'Overdue')
) < $11`

const selectLoanColumns = `
SELECT id, user_id, book_id, book_title, user_email, loan_date, due_date, return_date, status, penalty_cents
FROM loans`

const returnLoanSQL = `
UPDATE loans
SET return_date = $2, status = $3, penalty_cents = $4
WHERE id = $1 AND status IN ('Active', 'Overdue')`

const markOverdueSQL = `
UPDATE loans
SET status = 'Overdue'
WHERE status = 'Active' AND due_date < $1`

type LoanRepository struct {
	db db.DBTX
}

func NewLoanRepository(dbtx db.DBTX) *LoanRepository {
	return &LoanRepository{db: dbtx}
}

// Create inserts the loan only while the user stays under maxOutstanding
// outstanding loans. The guarded insert alone is not enough under READ
// COMMITTED, where concurrent statements count against statement-start
// snapshots, so the transaction first takes a per-user advisory lock.
// Creations for the same user serialize on it; the lock releases at
// commit or rollback.
func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan, maxOutstanding int, idempotencyKey *uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return infra.WrapErr("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, lockUserLoansSQL, l.UserID()); err != nil {
		return infra.WrapErr("failed to lock user loans", err)
	}

	tag, err := tx.Exec(ctx, createLoanSQL,
		l.ID(), l.UserID(), l.BookID(), l.BookTitle(), l.UserEmail(),
		l.LoanDate(), l.DueDate(), string(l.Status()), l.Penalty().Cents(),
		idempotencyKey, maxOutstanding,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return infra.WrapErr("loan already exists for idempotency key", err, infra.KindDuplicateKey)
		}
		return infra.WrapErr("failed to insert loan", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapErr("outstanding loan limit reached", nil, infra.KindConflict)
	}

	if err := tx.Commit(ctx); err != nil {
		return infra.WrapErr("failed to commit loan", err)
	}
	return nil
}

// Update persists the return transition. The status guard makes the
// transition one-shot: once a row is Returned no update ever matches it
// again.
func (r *LoanRepository) Update(ctx context.Context, l *loan.Loan) error {
	tag, err := r.db.Exec(ctx, returnLoanSQL,
		l.ID(), l.ReturnDate(), string(l.Status()), l.Penalty().Cents(),
	)
	if err != nil {
		return infra.WrapErr("failed to update loan", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapErr("loan is no longer updatable", nil, infra.KindConflict)
	}
	return nil
}

func (r *LoanRepository) FindByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	row := r.db.QueryRow(ctx, selectLoanColumns+" WHERE id = $1", id)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapErr("loan not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapErr("failed to find loan by id", err)
	}
	return l, nil
}

func (r *LoanRepository) FindByIdempotencyKey(ctx context.Context, key uuid.UUID) (*loan.Loan, error) {
	row := r.db.QueryRow(ctx, selectLoanColumns+" WHERE idempotency_key = $1", key)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapErr("no loan for idempotency key", err, infra.KindNotFound)
		}
		return nil, infra.WrapErr("failed to find loan by idempotency key", err)
	}
	return l, nil
}

func (r *LoanRepository) CountOutstandingByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM loans WHERE user_id = $1 AND status IN ('Active', 'Overdue')`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, infra.WrapErr("failed to count outstanding loans", err)
	}
	return count, nil
}

// MarkOverdueBefore flips every Active loan past its due date to Overdue in
// one statement. Rerunning it is harmless: already-Overdue and Returned
// rows never match.
func (r *LoanRepository) MarkOverdueBefore(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, markOverdueSQL, now)
	if err != nil {
		return 0, infra.WrapErr("failed to mark overdue loans", err)
	}
	return tag.RowsAffected(), nil
}

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var (
		id, userID, bookID   uuid.UUID
		bookTitle, userEmail string
		loanDate, dueDate    time.Time
		returnDate           *time.Time
		status               string
		penaltyCents         int64
	)

	if err := row.Scan(&id, &userID, &bookID, &bookTitle, &userEmail,
		&loanDate, &dueDate, &returnDate, &status, &penaltyCents); err != nil {
		return nil, err
	}

	parsedStatus, err := loan.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	penalty, err := loan.NewMoney(penaltyCents)
	if err != nil {
		return nil, err
	}

	return loan.ReconstructLoan(id, userID, bookID, bookTitle, userEmail,
		loanDate, dueDate, returnDate, parsedStatus, penalty), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
