package commands

import (
	"context"
	"log/slog"
	"time"

	"bookhub-loans/internal/domain/loan"
	"bookhub-loans/internal/infra"
	"bookhub-loans/internal/pkg/clock"
	"bookhub-loans/internal/pkg/config"
	"bookhub-loans/internal/pkg/errs"
	"bookhub-loans/internal/usecase/queries"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound        = errs.New("user not found")
	ErrBookNotFound        = errs.New("book not found")
	ErrBookUnavailable     = errs.New("book unavailable")
	ErrLoanLimitExceeded   = errs.New("loan limit exceeded")
	ErrLoanNotFound        = errs.New("loan not found")
	ErrLoanAlreadyReturned = errs.New("loan already returned")
	ErrRemoteTimeout       = errs.New("remote call timed out")
	ErrRemoteUnavailable   = errs.New("remote collaborator unavailable")
	ErrPersistenceFailed   = errs.New("persistence failed")
	ErrDomainValidation    = errs.New("domain validation error")
)

type CreateLoanParams struct {
	UserID         uuid.UUID
	BookID         uuid.UUID
	DurationDays   int
	IdempotencyKey *uuid.UUID
}

type CreateLoanResult struct {
	Loan *queries.LoanView
	// IsReplayed is true when an idempotency key matched an existing loan
	// and no new reservation was made.
	IsReplayed bool
}

type LoanCommands interface {
	CreateLoan(ctx context.Context, params CreateLoanParams) (*CreateLoanResult, error)

	// ReturnLoan closes a loan. A second return of the same loan is
	// rejected with ErrLoanAlreadyReturned; the first return's state is
	// never modified or rolled back.
	ReturnLoan(ctx context.Context, loanID uuid.UUID) (*queries.LoanView, error)
}

type loanCommandsImpl struct {
	loanRepo      LoanRepository
	catalog       CatalogPort
	users         UserPort
	compensations CompensationQueue
	penaltyCalc   loan.PenaltyCalculator
	clock         clock.Clock
	maxActive     int
	retries       int
	remoteTimeout time.Duration
	logger        *slog.Logger
}

func NewLoanCommands(
	loanRepo LoanRepository,
	catalog CatalogPort,
	users UserPort,
	compensations CompensationQueue,
	penaltyCalc loan.PenaltyCalculator,
	clk clock.Clock,
	cfg config.Config,
	logger *slog.Logger,
) LoanCommands {
	return &loanCommandsImpl{
		loanRepo:      loanRepo,
		catalog:       catalog,
		users:         users,
		compensations: compensations,
		penaltyCalc:   penaltyCalc,
		clock:         clk,
		maxActive:     cfg.Loan.MaxActiveLoans,
		retries:       cfg.Remote.Retries,
		remoteTimeout: cfg.Remote.Timeout,
		logger:        logger,
	}
}

// CreateLoan runs the creation saga: validate user and book, reserve one
// unit in the catalog, then persist. The reservation is the point of no
// return: every failure after it triggers a compensating release, inline
// first and queued for the reconciliation worker if the release fails too.
func (uc *loanCommandsImpl) CreateLoan(ctx context.Context, params CreateLoanParams) (*CreateLoanResult, error) {
	if params.IdempotencyKey != nil {
		existing, err := uc.loanRepo.FindByIdempotencyKey(ctx, *params.IdempotencyKey)
		switch {
		case err == nil:
			return &CreateLoanResult{Loan: toLoanView(existing), IsReplayed: true}, nil
		case !infra.IsKind(err, infra.KindNotFound):
			return nil, errs.Mark(err, ErrPersistenceFailed)
		}
	}

	user, err := uc.lookupUser(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	outstanding, err := uc.loanRepo.CountOutstandingByUserID(ctx, params.UserID)
	if err != nil {
		return nil, errs.Mark(err, ErrPersistenceFailed)
	}
	if outstanding >= uc.maxActive {
		return nil, ErrLoanLimitExceeded
	}

	book, err := uc.lookupBook(ctx, params.BookID)
	if err != nil {
		return nil, err
	}

	reserved, err := uc.catalog.ReserveOne(ctx, params.BookID)
	if err != nil {
		// The reserve outcome is unknown. ReleaseOne ignores releases
		// with no matching reservation, so scheduling one is safe
		// whether or not the decrement landed.
		uc.compensateReservation(ctx, uuid.Nil, params.BookID, "reserve outcome unknown")
		if infra.IsKind(err, infra.KindTimeout) {
			return nil, errs.Mark(err, ErrRemoteTimeout)
		}
		return nil, errs.Mark(err, ErrRemoteUnavailable)
	}
	if !reserved {
		return nil, ErrBookUnavailable
	}

	newLoan, err := loan.NewLoan(params.UserID, params.BookID, book.Title, user.Email, params.DurationDays, uc.clock.Now())
	if err != nil {
		uc.compensateReservation(ctx, uuid.Nil, params.BookID, "loan validation failed")
		return nil, errs.Mark(err, ErrDomainValidation)
	}

	if err := uc.loanRepo.Create(ctx, newLoan, uc.maxActive, params.IdempotencyKey); err != nil {
		uc.compensateReservation(ctx, newLoan.ID(), params.BookID, "loan insert failed")

		switch {
		case infra.IsKind(err, infra.KindConflict):
			return nil, ErrLoanLimitExceeded
		case infra.IsKind(err, infra.KindDuplicateKey) && params.IdempotencyKey != nil:
			// A concurrent retry with the same key won the insert.
			existing, findErr := uc.loanRepo.FindByIdempotencyKey(ctx, *params.IdempotencyKey)
			if findErr == nil {
				return &CreateLoanResult{Loan: toLoanView(existing), IsReplayed: true}, nil
			}
			return nil, errs.Mark(err, ErrPersistenceFailed)
		default:
			return nil, errs.Mark(err, ErrPersistenceFailed)
		}
	}

	uc.logger.Info("loan created",
		"loan_id", newLoan.ID(),
		"user_id", newLoan.UserID(),
		"book_id", newLoan.BookID(),
		"due_date", newLoan.DueDate(),
	)

	return &CreateLoanResult{Loan: toLoanView(newLoan)}, nil
}

func (uc *loanCommandsImpl) ReturnLoan(ctx context.Context, loanID uuid.UUID) (*queries.LoanView, error) {
	l, err := uc.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, errs.Mark(err, ErrPersistenceFailed)
	}

	if l.IsReturned() {
		return nil, ErrLoanAlreadyReturned
	}

	if err := l.Return(uc.clock.Now(), uc.penaltyCalc); err != nil {
		return nil, errs.Mark(err, ErrLoanAlreadyReturned)
	}

	if err := uc.loanRepo.Update(ctx, l); err != nil {
		if infra.IsKind(err, infra.KindConflict) {
			// A concurrent return won the one-shot transition.
			return nil, ErrLoanAlreadyReturned
		}
		return nil, errs.Mark(err, ErrPersistenceFailed)
	}

	// The return is persisted and stays persisted. A failed release only
	// queues a compensation; it never undoes the return.
	releaseCtx, cancel := uc.detachedContext(ctx)
	defer cancel()
	if err := uc.catalog.ReleaseOne(releaseCtx, l.BookID()); err != nil {
		uc.logger.Warn("release after return failed, queueing compensation",
			"loan_id", l.ID(), "book_id", l.BookID(), "error", err)
		uc.queueCompensation(releaseCtx, l.ID(), l.BookID(), "release after return failed")
	}

	uc.logger.Info("loan returned",
		"loan_id", l.ID(),
		"penalty_cents", l.Penalty().Cents(),
	)

	return toLoanView(l), nil
}

func (uc *loanCommandsImpl) lookupUser(ctx context.Context, userID uuid.UUID) (*UserSnapshot, error) {
	var user *UserSnapshot
	err := uc.withRetry(ctx, func() error {
		var callErr error
		user, callErr = uc.users.GetUser(ctx, userID)
		return callErr
	})
	if err != nil {
		switch {
		case infra.IsKind(err, infra.KindNotFound):
			return nil, ErrUserNotFound
		case infra.IsKind(err, infra.KindTimeout):
			return nil, errs.Mark(err, ErrRemoteTimeout)
		default:
			return nil, errs.Mark(err, ErrRemoteUnavailable)
		}
	}
	return user, nil
}

func (uc *loanCommandsImpl) lookupBook(ctx context.Context, bookID uuid.UUID) (*BookSnapshot, error) {
	var book *BookSnapshot
	err := uc.withRetry(ctx, func() error {
		var callErr error
		book, callErr = uc.catalog.GetBook(ctx, bookID)
		return callErr
	})
	if err != nil {
		switch {
		case infra.IsKind(err, infra.KindNotFound):
			return nil, ErrBookNotFound
		case infra.IsKind(err, infra.KindTimeout):
			return nil, errs.Mark(err, ErrRemoteTimeout)
		default:
			return nil, errs.Mark(err, ErrRemoteUnavailable)
		}
	}
	return book, nil
}

// withRetry re-runs fn on timeouts only. Lookups happen before the
// reservation, so a retry has no side effect to duplicate.
func (uc *loanCommandsImpl) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= uc.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return infra.WrapErr("canceled while retrying", ctx.Err(), infra.KindTimeout)
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
		if err = fn(); err == nil || !infra.IsKind(err, infra.KindTimeout) {
			return err
		}
	}
	return err
}

// compensateReservation releases a reserved unit. It tries inline first and
// falls back to the durable queue, and it runs even when the request
// context is already canceled: the reservation happened either way.
func (uc *loanCommandsImpl) compensateReservation(ctx context.Context, loanID, bookID uuid.UUID, reason string) {
	releaseCtx, cancel := uc.detachedContext(ctx)
	defer cancel()

	err := uc.catalog.ReleaseOne(releaseCtx, bookID)
	if err == nil {
		return
	}

	uc.logger.Warn("inline compensation failed, queueing",
		"book_id", bookID, "reason", reason, "error", err)
	uc.queueCompensation(releaseCtx, loanID, bookID, reason)
}

func (uc *loanCommandsImpl) queueCompensation(ctx context.Context, loanID, bookID uuid.UUID, reason string) {
	comp := Compensation{
		ID:     uuid.New(),
		LoanID: loanID,
		BookID: bookID,
		Action: CompensationRelease,
		Reason: reason,
	}
	if err := uc.compensations.Enqueue(ctx, comp); err != nil {
		// Nothing left to hand this to. Loud log so the drift is at least
		// visible to operators.
		uc.logger.Error("failed to queue compensation, inventory may drift",
			"book_id", bookID, "loan_id", loanID, "reason", reason, "error", err)
	}
}

func (uc *loanCommandsImpl) detachedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), uc.remoteTimeout)
}

func toLoanView(l *loan.Loan) *queries.LoanView {
	return &queries.LoanView{
		ID:           l.ID(),
		UserID:       l.UserID(),
		BookID:       l.BookID(),
		BookTitle:    l.BookTitle(),
		UserEmail:    l.UserEmail(),
		LoanDate:     l.LoanDate(),
		DueDate:      l.DueDate(),
		ReturnDate:   l.ReturnDate(),
		Status:       string(l.Status()),
		PenaltyCents: l.Penalty().Cents(),
	}
}
