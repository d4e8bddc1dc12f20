//go:build unit

package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"bookhub-loans/internal/pkg/clock"
	"bookhub-loans/internal/pkg/config"
	"bookhub-loans/internal/usecase/commands"
	portsmock "bookhub-loans/tests/mock/ports"
)

type stubStore struct {
	due         []commands.PendingCompensation
	dueErr      error
	done        []uuid.UUID
	rescheduled []rescheduleCall
}

type rescheduleCall struct {
	id        uuid.UUID
	runAt     time.Time
	lastError string
}

func (s *stubStore) Due(_ context.Context, _ time.Time, _ int) ([]commands.PendingCompensation, error) {
	return s.due, s.dueErr
}

func (s *stubStore) MarkDone(_ context.Context, id uuid.UUID) error {
	s.done = append(s.done, id)
	return nil
}

func (s *stubStore) Reschedule(_ context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	s.rescheduled = append(s.rescheduled, rescheduleCall{id: id, runAt: runAt, lastError: lastError})
	return nil
}

func pendingRelease(attempts int32) commands.PendingCompensation {
	return commands.PendingCompensation{
		Compensation: commands.Compensation{
			ID:     uuid.New(),
			LoanID: uuid.New(),
			BookID: uuid.New(),
			Action: commands.CompensationRelease,
			Reason: "release after persist failure",
		},
		Attempts: attempts,
	}
}

func newReconcileFixture(t *testing.T, store *stubStore) (*ReconciliationWorker, *portsmock.MockCatalogPort, *clock.MockClock) {
	t.Helper()
	ctrl := gomock.NewController(t)
	catalog := portsmock.NewMockCatalogPort(ctrl)
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewReconciliationWorker(store, catalog, clk, config.NewTestConfig().Worker, logger)
	return w, catalog, clk
}

func TestReconciliationWorker_Drain(t *testing.T) {
	t.Parallel()

	t.Run("successful release is marked done", func(t *testing.T) {
		t.Parallel()
		p := pendingRelease(0)
		store := &stubStore{due: []commands.PendingCompensation{p}}
		w, catalog, _ := newReconcileFixture(t, store)

		catalog.EXPECT().ReleaseOne(gomock.Any(), p.BookID).Return(nil)

		w.Drain(context.Background())

		require.Len(t, store.done, 1)
		assert.Equal(t, p.ID, store.done[0])
		assert.Empty(t, store.rescheduled)
	})

	t.Run("failed release is rescheduled with backoff", func(t *testing.T) {
		t.Parallel()
		p := pendingRelease(0)
		store := &stubStore{due: []commands.PendingCompensation{p}}
		w, catalog, clk := newReconcileFixture(t, store)

		catalog.EXPECT().ReleaseOne(gomock.Any(), p.BookID).Return(errors.New("catalog unreachable"))

		w.Drain(context.Background())

		assert.Empty(t, store.done)
		require.Len(t, store.rescheduled, 1)
		assert.Equal(t, p.ID, store.rescheduled[0].id)
		assert.Equal(t, clk.Now().Add(time.Second), store.rescheduled[0].runAt)
		assert.Contains(t, store.rescheduled[0].lastError, "catalog unreachable")
	})

	t.Run("reserve that finds no stock is retried later", func(t *testing.T) {
		t.Parallel()
		p := pendingRelease(0)
		p.Action = commands.CompensationReserve
		store := &stubStore{due: []commands.PendingCompensation{p}}
		w, catalog, _ := newReconcileFixture(t, store)

		catalog.EXPECT().ReserveOne(gomock.Any(), p.BookID).Return(false, nil)

		w.Drain(context.Background())

		assert.Empty(t, store.done)
		require.Len(t, store.rescheduled, 1)
	})

	t.Run("successful reserve is marked done", func(t *testing.T) {
		t.Parallel()
		p := pendingRelease(2)
		p.Action = commands.CompensationReserve
		store := &stubStore{due: []commands.PendingCompensation{p}}
		w, catalog, _ := newReconcileFixture(t, store)

		catalog.EXPECT().ReserveOne(gomock.Any(), p.BookID).Return(true, nil)

		w.Drain(context.Background())

		require.Len(t, store.done, 1)
		assert.Equal(t, p.ID, store.done[0])
	})

	t.Run("entry keeps retrying past the alarm threshold", func(t *testing.T) {
		t.Parallel()
		p := pendingRelease(9)
		store := &stubStore{due: []commands.PendingCompensation{p}}
		w, catalog, _ := newReconcileFixture(t, store)

		catalog.EXPECT().ReleaseOne(gomock.Any(), p.BookID).Return(errors.New("still down"))

		w.Drain(context.Background())

		require.Len(t, store.rescheduled, 1)
	})

	t.Run("load failure skips the batch", func(t *testing.T) {
		t.Parallel()
		store := &stubStore{dueErr: errors.New("db down")}
		w, _, _ := newReconcileFixture(t, store)

		w.Drain(context.Background())

		assert.Empty(t, store.done)
		assert.Empty(t, store.rescheduled)
	})
}

func TestReconciliationWorker_Backoff(t *testing.T) {
	t.Parallel()

	w, _, _ := newReconcileFixture(t, &stubStore{})

	tests := []struct {
		name     string
		attempts int32
		want     time.Duration
	}{
		{name: "first attempt uses base interval", attempts: 1, want: time.Second},
		{name: "doubles per attempt", attempts: 3, want: 4 * time.Second},
		{name: "caps at max backoff", attempts: 20, want: time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, w.backoff(tt.attempts))
		})
	}
}
