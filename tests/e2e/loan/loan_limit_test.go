//go:build e2e

package loan_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"bookhub-loans/internal/domain/loan"
	"bookhub-loans/internal/infra"
	"bookhub-loans/internal/infra/repository"
	"bookhub-loans/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maxOutstanding = 5

func newLoanFor(t *testing.T, userID uuid.UUID) *loan.Loan {
	t.Helper()
	l, err := loan.NewLoan(userID, uuid.New(), "Concurrent Title", "borrower@example.com", 14, time.Now().UTC())
	require.NoError(t, err)
	return l
}

func outstandingCount(t *testing.T, repo *repository.LoanRepository, userID uuid.UUID) int {
	t.Helper()
	count, err := repo.CountOutstandingByUserID(context.Background(), userID)
	require.NoError(t, err)
	return count
}

// Concurrent creations for one user must never push them past the
// outstanding limit, no matter how the statements interleave.
func TestLoanRepository_Create_ConcurrentLimit(t *testing.T) {
	t.Parallel()

	pool := e2e.SetupDatabase(t)
	repo := repository.NewLoanRepository(pool)
	ctx := context.Background()

	t.Run("one slot left, many racers, exactly one wins", func(t *testing.T) {
		userID := uuid.New()

		for range maxOutstanding - 1 {
			require.NoError(t, repo.Create(ctx, newLoanFor(t, userID), maxOutstanding, nil))
		}
		require.Equal(t, maxOutstanding-1, outstandingCount(t, repo, userID))

		const racers = 10
		errs := make([]error, racers)
		var wg sync.WaitGroup
		for i := range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = repo.Create(ctx, newLoanFor(t, userID), maxOutstanding, nil)
			}()
		}
		wg.Wait()

		var created, rejected int
		for _, err := range errs {
			switch {
			case err == nil:
				created++
			case infra.IsKind(err, infra.KindConflict):
				rejected++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, created)
		assert.Equal(t, racers-1, rejected)
		assert.Equal(t, maxOutstanding, outstandingCount(t, repo, userID))
	})

	t.Run("from zero, racers fill exactly the limit", func(t *testing.T) {
		userID := uuid.New()

		const racers = 20
		errs := make([]error, racers)
		var wg sync.WaitGroup
		for i := range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = repo.Create(ctx, newLoanFor(t, userID), maxOutstanding, nil)
			}()
		}
		wg.Wait()

		var created int
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			require.True(t, infra.IsKind(err, infra.KindConflict), "unexpected error: %v", err)
		}
		assert.Equal(t, maxOutstanding, created)
		assert.Equal(t, maxOutstanding, outstandingCount(t, repo, userID))
	})

	t.Run("racers for different users do not contend", func(t *testing.T) {
		userA, userB := uuid.New(), uuid.New()

		var wg sync.WaitGroup
		errsA := make([]error, maxOutstanding)
		errsB := make([]error, maxOutstanding)
		for i := range maxOutstanding {
			wg.Add(2)
			go func() {
				defer wg.Done()
				errsA[i] = repo.Create(ctx, newLoanFor(t, userA), maxOutstanding, nil)
			}()
			go func() {
				defer wg.Done()
				errsB[i] = repo.Create(ctx, newLoanFor(t, userB), maxOutstanding, nil)
			}()
		}
		wg.Wait()

		for i := range maxOutstanding {
			assert.NoError(t, errsA[i])
			assert.NoError(t, errsB[i])
		}
		assert.Equal(t, maxOutstanding, outstandingCount(t, repo, userA))
		assert.Equal(t, maxOutstanding, outstandingCount(t, repo, userB))
	})
}
