//go:build unit

package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"bookhub-loans/internal/domain/loan"
	"bookhub-loans/internal/infra"
	"bookhub-loans/internal/pkg/config"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	tx       *fakeTx
	beginErr error
}

func (f *fakeDB) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	panic("Exec outside a transaction")
}

func (f *fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	panic("Query outside a transaction")
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	panic("QueryRow outside a transaction")
}

func (f *fakeDB) Begin(_ context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.tx, nil
}

// fakeTx records every statement so tests can assert the lock is taken
// before the guarded insert and the transaction ends the right way.
type fakeTx struct {
	statements []string
	insertTag  pgconn.CommandTag
	insertErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.statements = append(t.statements, sql)
	if strings.Contains(sql, "INSERT INTO loans") {
		return t.insertTag, t.insertErr
	}
	return pgconn.NewCommandTag("SELECT 1"), nil
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.rolledBack = true
	return nil
}

func (t *fakeTx) Begin(_ context.Context) (pgx.Tx, error) { panic("nested Begin") }
func (t *fakeTx) Conn() *pgx.Conn                         { return nil }
func (t *fakeTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	panic("CopyFrom not expected")
}
func (t *fakeTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults {
	panic("SendBatch not expected")
}
func (t *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(_ context.Context, _ string, _ string) (*pgconn.StatementDescription, error) {
	panic("Prepare not expected")
}
func (t *fakeTx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	panic("Query not expected")
}
func (t *fakeTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	panic("QueryRow not expected")
}

func newTestLoan(t *testing.T) *loan.Loan {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l, err := loan.NewLoan(uuid.New(), uuid.New(), "The Go Programming Language", "reader@example.com", 14, now)
	require.NoError(t, err)
	return l
}

func TestLoanRepository_Create(t *testing.T) {
	t.Parallel()

	maxOutstanding := config.NewTestConfig().Loan.MaxActiveLoans

	t.Run("locks the user before the guarded insert and commits", func(t *testing.T) {
		t.Parallel()
		tx := &fakeTx{insertTag: pgconn.NewCommandTag("INSERT 0 1")}
		repo := NewLoanRepository(&fakeDB{tx: tx})

		err := repo.Create(context.Background(), newTestLoan(t), maxOutstanding, nil)

		require.NoError(t, err)
		require.Len(t, tx.statements, 2)
		assert.Contains(t, tx.statements[0], "pg_advisory_xact_lock")
		assert.Contains(t, tx.statements[1], "INSERT INTO loans")
		assert.True(t, tx.committed)
	})

	t.Run("limit reached maps to conflict without committing", func(t *testing.T) {
		t.Parallel()
		tx := &fakeTx{insertTag: pgconn.NewCommandTag("INSERT 0 0")}
		repo := NewLoanRepository(&fakeDB{tx: tx})

		err := repo.Create(context.Background(), newTestLoan(t), maxOutstanding, nil)

		require.Error(t, err)
		assert.True(t, infra.IsKind(err, infra.KindConflict))
		assert.False(t, tx.committed)
		assert.True(t, tx.rolledBack)
	})

	t.Run("unique violation maps to duplicate key", func(t *testing.T) {
		t.Parallel()
		tx := &fakeTx{insertErr: &pgconn.PgError{Code: "23505"}}
		repo := NewLoanRepository(&fakeDB{tx: tx})

		key := uuid.New()
		err := repo.Create(context.Background(), newTestLoan(t), maxOutstanding, &key)

		require.Error(t, err)
		assert.True(t, infra.IsKind(err, infra.KindDuplicateKey))
		assert.False(t, tx.committed)
	})

	t.Run("begin failure surfaces as db failure", func(t *testing.T) {
		t.Parallel()
		repo := NewLoanRepository(&fakeDB{beginErr: context.DeadlineExceeded})

		err := repo.Create(context.Background(), newTestLoan(t), maxOutstanding, nil)

		require.Error(t, err)
		assert.True(t, infra.IsKind(err, infra.KindDBFailure))
	})
}
