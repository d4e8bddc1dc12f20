package repository

import (
	"context"
	"time"

	"bookhub-loans/internal/infra"
	"bookhub-loans/internal/infra/db"
	"bookhub-loans/internal/usecase/commands"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Expected schema:
//
//	CREATE TABLE pending_compensations (
//	    id         uuid PRIMARY KEY,
//	    book_id    uuid NOT NULL,
//	    loan_id    uuid,
//	    action     text NOT NULL,
//	    payload    jsonb NOT NULL,
//	    attempts   integer NOT NULL DEFAULT 0,
//	    status     text NOT NULL DEFAULT 'pending',
//	    run_at     timestamptz NOT NULL,
//	    last_error text,
//	    created_at timestamptz NOT NULL DEFAULT now()
//	);

type compensationPayload struct {
	LoanID uuid.UUID `json:"loan_id"`
	BookID uuid.UUID `json:"book_id"`
	Action string    `json:"action"`
	Reason string    `json:"reason"`
}

type CompensationRepository struct {
	db db.DBTX
}

func NewCompensationRepository(dbtx db.DBTX) *CompensationRepository {
	return &CompensationRepository{db: dbtx}
}

func (r *CompensationRepository) Enqueue(ctx context.Context, comp commands.Compensation) error {
	payload, err := json.Marshal(compensationPayload{
		LoanID: comp.LoanID,
		BookID: comp.BookID,
		Action: string(comp.Action),
		Reason: comp.Reason,
	})
	if err != nil {
		return infra.WrapErr("failed to encode compensation payload", err)
	}

	var loanID *uuid.UUID
	if comp.LoanID != uuid.Nil {
		loanID = &comp.LoanID
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO pending_compensations (id, book_id, loan_id, action, payload, attempts, status, run_at)
		VALUES ($1, $2, $3, $4, $5, 0, 'pending', now())`,
		comp.ID, comp.BookID, loanID, string(comp.Action), payload,
	)
	if err != nil {
		return infra.WrapErr("failed to enqueue compensation", err)
	}
	return nil
}

// Due returns pending compensations whose retry time has arrived, oldest
// first.
func (r *CompensationRepository) Due(ctx context.Context, now time.Time, limit int) ([]commands.PendingCompensation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, attempts, payload
		FROM pending_compensations
		WHERE status = 'pending' AND run_at <= $1
		ORDER BY run_at
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, infra.WrapErr("failed to load due compensations", err)
	}
	defer rows.Close()

	var result []commands.PendingCompensation
	for rows.Next() {
		var (
			id       uuid.UUID
			attempts int32
			raw      []byte
		)
		if err := rows.Scan(&id, &attempts, &raw); err != nil {
			return nil, infra.WrapErr("failed to scan compensation row", err)
		}

		var payload compensationPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, infra.WrapErr("failed to decode compensation payload", err)
		}

		result = append(result, commands.PendingCompensation{
			Compensation: commands.Compensation{
				ID:     id,
				LoanID: payload.LoanID,
				BookID: payload.BookID,
				Action: commands.CompensationAction(payload.Action),
				Reason: payload.Reason,
			},
			Attempts: attempts,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapErr("failed to iterate compensation rows", err)
	}
	return result, nil
}

func (r *CompensationRepository) MarkDone(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE pending_compensations SET status = 'done' WHERE id = $1`, id)
	if err != nil {
		return infra.WrapErr("failed to mark compensation done", err)
	}
	return nil
}

// Reschedule pushes a failed compensation back into the queue. The entry is
// never deleted on failure, only delayed.
func (r *CompensationRepository) Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE pending_compensations
		SET attempts = attempts + 1, run_at = $2, last_error = $3
		WHERE id = $1`,
		id, runAt, lastError,
	)
	if err != nil {
		return infra.WrapErr("failed to reschedule compensation", err)
	}
	return nil
}
