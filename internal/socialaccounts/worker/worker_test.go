package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"fanforge-server/internal/observability"
	"fanforge-server/internal/store"

	"github.com/google/uuid"
)

type fakeStore struct {
	accounts []store.SocialAccount
	err      error
}

func (f *fakeStore) ListPendingSocialAccounts(_ context.Context, limit int) ([]store.SocialAccount, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.accounts) {
		return f.accounts[:limit], nil
	}
	return f.accounts, nil
}

type fakeChecker struct {
	checked []uuid.UUID
	done    map[uuid.UUID]bool
	err     error
}

func (f *fakeChecker) CheckAccountOnce(_ context.Context, account store.SocialAccount) (bool, error) {
	f.checked = append(f.checked, account.ID)
	if f.err != nil {
		return false, f.err
	}
	return f.done[account.ID], nil
}

func pendingAccount(snapshotID *string) store.SocialAccount {
	return store.SocialAccount{
		ID:                 uuid.New(),
		UserID:             uuid.New(),
		Platform:           "tiktok",
		VerificationStatus: store.VerificationStatusPending,
		SnapshotID:         snapshotID,
	}
}

func TestSweepSkipsAccountsWithoutSnapshot(t *testing.T) {
	snap := "snap-1"
	withJob := pendingAccount(&snap)
	withoutJob := pendingAccount(nil)

	st := &fakeStore{accounts: []store.SocialAccount{withJob, withoutJob}}
	checker := &fakeChecker{done: map[uuid.UUID]bool{withJob.ID: true}}
	w := New(st, checker, observability.NewLogger(), time.Minute)

	w.sweep(context.Background())

	if len(checker.checked) != 1 || checker.checked[0] != withJob.ID {
		t.Errorf("expected only the account with a scrape job checked, got %v", checker.checked)
	}
}

func TestSweepRetriesOnCheckError(t *testing.T) {
	snap := "snap-1"
	st := &fakeStore{accounts: []store.SocialAccount{pendingAccount(&snap), pendingAccount(&snap)}}
	checker := &fakeChecker{err: errors.New("vendor down")}
	w := New(st, checker, observability.NewLogger(), time.Minute)

	// A failing check must not stop the rest of the batch.
	w.sweep(context.Background())

	if len(checker.checked) != 2 {
		t.Errorf("expected both accounts checked despite errors, got %d", len(checker.checked))
	}
}

func TestStartStopsOnStop(t *testing.T) {
	st := &fakeStore{}
	w := New(st, &fakeChecker{}, observability.NewLogger(), time.Hour)

	stopped := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(stopped)
	}()

	w.Stop()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
