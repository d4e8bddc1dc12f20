package commands

import (
	"context"

	"bookhub-loans/internal/domain/loan"

	"github.com/google/uuid"
)

// Write-side snapshots keep the saga independent of the collaborators'
// transport types. Title and email are denormalized onto the loan at
// creation and never refreshed.
type UserSnapshot struct {
	ID    uuid.UUID
	Email string
	Name  string
}

type BookSnapshot struct {
	ID    uuid.UUID
	Title string
}

// UserPort is the remote user directory. Absence is reported as an
// infra.KindNotFound error.
type UserPort interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*UserSnapshot, error)
}

// CatalogPort owns the per-book availability counter. ReserveOne and
// ReleaseOne are the only mutations the core ever asks for; the counter is
// never cached locally.
type CatalogPort interface {
	GetBook(ctx context.Context, bookID uuid.UUID) (*BookSnapshot, error)

	// ReserveOne atomically decrements availability. false means no stock
	// and no state change.
	ReserveOne(ctx context.Context, bookID uuid.UUID) (bool, error)

	// ReleaseOne returns one copy to availability. It must not be a bare
	// increment: repeats of the same logical release, and releases for a
	// reservation that never took effect, are no-ops. The catalog must
	// never report more copies available than it owns. The saga relies on
	// this when a reserve call fails with an unknown outcome and a
	// release is issued without knowing whether the decrement landed.
	ReleaseOne(ctx context.Context, bookID uuid.UUID) error
}

// LoanRepository is the persistence contract for loan records. Create must
// enforce the outstanding-loan limit with a conditional insert (reported as
// infra.KindConflict); the in-memory count check in the saga is a fast path
// only. Update must refuse to touch a returned loan (infra.KindConflict).
type LoanRepository interface {
	Create(ctx context.Context, l *loan.Loan, maxOutstanding int, idempotencyKey *uuid.UUID) error
	Update(ctx context.Context, l *loan.Loan) error
	FindByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error)
	FindByIdempotencyKey(ctx context.Context, key uuid.UUID) (*loan.Loan, error)
	CountOutstandingByUserID(ctx context.Context, userID uuid.UUID) (int, error)
}

type CompensationAction string

const (
	CompensationRelease CompensationAction = "release"
	CompensationReserve CompensationAction = "reserve"
)

// Compensation is a catalog correction that failed inline and must be
// retried until it sticks. LoanID may be uuid.Nil when the saga failed
// before a loan existed.
type Compensation struct {
	ID     uuid.UUID
	LoanID uuid.UUID
	BookID uuid.UUID
	Action CompensationAction
	Reason string
}

// PendingCompensation is a queued compensation together with its retry
// bookkeeping.
type PendingCompensation struct {
	Compensation
	Attempts int32
}

// CompensationQueue persists pending compensations for the reconciliation
// worker. Durability matters: a lost entry is permanent inventory drift.
type CompensationQueue interface {
	Enqueue(ctx context.Context, comp Compensation) error
}
