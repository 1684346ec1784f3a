package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"fanforge-server/internal/clients/brightdata"
	"fanforge-server/internal/config"
	"fanforge-server/internal/observability"
	"fanforge-server/internal/store"

	"github.com/google/uuid"
)

type fakeStore struct {
	accounts map[uuid.UUID]store.SocialAccount
	users    map[uuid.UUID]store.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[uuid.UUID]store.SocialAccount{},
		users:    map[uuid.UUID]store.User{},
	}
}

func (f *fakeStore) CreateSocialAccount(ctx context.Context, params store.CreateSocialAccountParams) (store.SocialAccount, error) {
	account := store.SocialAccount{
		ID:                 uuid.New(),
		UserID:             params.UserID,
		Platform:           params.Platform,
		ProfileURL:         params.ProfileURL,
		Username:           params.Username,
		VerificationCode:   params.VerificationCode,
		VerificationStatus: store.VerificationStatusPending,
		ScrapeStatus:       store.ScrapeStatusPending,
		CreatedAt:          time.Now(),
	}
	f.accounts[account.ID] = account
	return account, nil
}

func (f *fakeStore) GetSocialAccountByID(ctx context.Context, accountID uuid.UUID) (store.SocialAccount, error) {
	account, ok := f.accounts[accountID]
	if !ok {
		return store.SocialAccount{}, store.ErrNotFound
	}
	return account, nil
}

func (f *fakeStore) GetSocialAccountBySnapshotID(ctx context.Context, snapshotID string) (store.SocialAccount, error) {
	for _, account := range f.accounts {
		if account.SnapshotID != nil && *account.SnapshotID == snapshotID {
			return account, nil
		}
	}
	return store.SocialAccount{}, store.ErrNotFound
}

func (f *fakeStore) GetSocialAccountByProfileURL(ctx context.Context, userID uuid.UUID, profileURL string) (store.SocialAccount, error) {
	for _, account := range f.accounts {
		if account.UserID == userID && account.ProfileURL == profileURL {
			return account, nil
		}
	}
	return store.SocialAccount{}, store.ErrNotFound
}

func (f *fakeStore) ListSocialAccountsByUser(ctx context.Context, userID uuid.UUID) ([]store.SocialAccount, error) {
	var out []store.SocialAccount
	for _, account := range f.accounts {
		if account.UserID == userID {
			out = append(out, account)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteSocialAccount(ctx context.Context, accountID, userID uuid.UUID) error {
	account, ok := f.accounts[accountID]
	if !ok || account.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.accounts, accountID)
	return nil
}

func (f *fakeStore) ResetSocialAccountVerification(ctx context.Context, accountID uuid.UUID, snapshotID string, code string) (store.SocialAccount, error) {
	account, ok := f.accounts[accountID]
	if !ok {
		return store.SocialAccount{}, store.ErrNotFound
	}
	account.VerificationStatus = store.VerificationStatusPending
	account.ScrapeStatus = store.ScrapeStatusPending
	account.SnapshotID = &snapshotID
	account.VerificationCode = code
	f.accounts[accountID] = account
	return account, nil
}

func (f *fakeStore) MarkSocialAccountVerified(ctx context.Context, accountID uuid.UUID, payload store.JSONB) (store.SocialAccount, error) {
	account, ok := f.accounts[accountID]
	if !ok {
		return store.SocialAccount{}, store.ErrNotFound
	}
	account.VerificationStatus = store.VerificationStatusVerified
	account.ScrapeStatus = store.ScrapeStatusCompleted
	account.ProfilePayload = payload
	f.accounts[accountID] = account
	return account, nil
}

func (f *fakeStore) MarkSocialAccountFailed(ctx context.Context, accountID uuid.UUID, payload store.JSONB) (store.SocialAccount, error) {
	account, ok := f.accounts[accountID]
	if !ok {
		return store.SocialAccount{}, store.ErrNotFound
	}
	account.VerificationStatus = store.VerificationStatusFailed
	account.ScrapeStatus = store.ScrapeStatusCompleted
	account.ProfilePayload = payload
	account.Attempts++
	f.accounts[accountID] = account
	return account, nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID uuid.UUID) (store.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

type fakeScraper struct {
	snapshotID string
	statuses   []string
	records    []map[string]any
	statusErr  error
	calls      int
}

func (f *fakeScraper) TriggerCollection(ctx context.Context, datasetID, targetURL string) (string, error) {
	return f.snapshotID, nil
}

func (f *fakeScraper) SnapshotStatus(ctx context.Context, snapshotID string) (string, error) {
	if f.statusErr != nil {
		return "", f.statusErr
	}
	idx := f.calls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.calls++
	return f.statuses[idx], nil
}

func (f *fakeScraper) FetchSnapshot(ctx context.Context, snapshotID string) ([]map[string]any, error) {
	return f.records, nil
}

type fakeNotifier struct {
	codeEmails      int
	succeededEmails int
	failedEmails    int
}

func (f *fakeNotifier) SendVerificationCodeEmail(ctx context.Context, to, platform, username, code string) error {
	f.codeEmails++
	return nil
}

func (f *fakeNotifier) SendVerificationSucceededEmail(ctx context.Context, to, platform, username string) error {
	f.succeededEmails++
	return nil
}

func (f *fakeNotifier) SendVerificationFailedEmail(ctx context.Context, to, platform, username, code string) error {
	f.failedEmails++
	return nil
}

func newTestProcessor(st *fakeStore, scraper *fakeScraper, notifier *fakeNotifier) Processor {
	cfg := config.BrightDataConfig{
		TikTokDatasetID:    "ds-tiktok",
		InstagramDatasetID: "ds-instagram",
		YouTubeDatasetID:   "ds-youtube",
	}
	pollCfg := config.VerificationConfig{
		PollInterval: time.Millisecond,
		PollDeadline: time.Second,
	}
	return New(st, scraper, notifier, cfg, pollCfg, observability.NewLogger())
}

func seedUser(st *fakeStore) uuid.UUID {
	userID := uuid.New()
	st.users[userID] = store.User{ID: userID, Email: "fan@example.com", FirstName: "Sam"}
	return userID
}

func TestClaimAccount(t *testing.T) {
	st := newFakeStore()
	notifier := &fakeNotifier{}
	p := newTestProcessor(st, &fakeScraper{}, notifier)
	userID := seedUser(st)

	account, err := p.ClaimAccount(context.Background(), userID, "https://www.tiktok.com/@someuser/?lang=en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.Platform != store.PlatformTikTok {
		t.Errorf("platform = %q", account.Platform)
	}
	if account.ProfileURL != "https://www.tiktok.com/@someuser" {
		t.Errorf("profile url not canonical: %q", account.ProfileURL)
	}
	if account.Username != "someuser" {
		t.Errorf("username = %q", account.Username)
	}
	if account.VerificationStatus != store.VerificationStatusPending {
		t.Errorf("status = %q, want PENDING", account.VerificationStatus)
	}
	if len(account.VerificationCode) != 6 {
		t.Errorf("code = %q, want 6 chars", account.VerificationCode)
	}
	if notifier.codeEmails != 1 {
		t.Errorf("codeEmails = %d, want 1", notifier.codeEmails)
	}
}

func TestClaimAccountUnsupportedPlatform(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st, &fakeScraper{}, &fakeNotifier{})
	userID := seedUser(st)

	_, err := p.ClaimAccount(context.Background(), userID, "https://example.com/someuser")
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestClaimAccountDuplicate(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st, &fakeScraper{}, &fakeNotifier{})
	userID := seedUser(st)

	if _, err := p.ClaimAccount(context.Background(), userID, "https://www.tiktok.com/@someuser"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	_, err := p.ClaimAccount(context.Background(), userID, "https://www.tiktok.com/@someuser/?lang=en")
	if !errors.Is(err, ErrAccountAlreadyExists) {
		t.Errorf("expected ErrAccountAlreadyExists, got %v", err)
	}
}

func TestTriggerVerificationOwnership(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st, &fakeScraper{snapshotID: "snap-1"}, &fakeNotifier{})
	owner := seedUser(st)
	other := seedUser(st)

	account, err := p.ClaimAccount(context.Background(), owner, "https://www.tiktok.com/@someuser")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	if _, err := p.TriggerVerification(context.Background(), other, account.ID, false); !errors.Is(err, ErrAccountNotOwned) {
		t.Errorf("expected ErrAccountNotOwned, got %v", err)
	}

	updated, err := p.TriggerVerification(context.Background(), owner, account.ID, false)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if updated.SnapshotID == nil || *updated.SnapshotID != "snap-1" {
		t.Errorf("snapshot id not recorded: %v", updated.SnapshotID)
	}
	if updated.VerificationCode != account.VerificationCode {
		t.Errorf("code should be unchanged without regenerate")
	}
}

func TestPollVerificationSuccess(t *testing.T) {
	st := newFakeStore()
	notifier := &fakeNotifier{}
	scraper := &fakeScraper{snapshotID: "snap-ok", statuses: []string{brightdata.StatusRunning, brightdata.StatusReady}}
	p := newTestProcessor(st, scraper, notifier)
	userID := seedUser(st)

	account, _ := p.ClaimAccount(context.Background(), userID, "https://www.tiktok.com/@someuser")
	account, err := p.TriggerVerification(context.Background(), userID, account.ID, false)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	scraper.records = []map[string]any{{"signature": "hello " + account.VerificationCode + " world"}}

	updated, err := p.PollVerification(context.Background(), userID, account.ID)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if updated.VerificationStatus != store.VerificationStatusVerified {
		t.Errorf("status = %q, want VERIFIED", updated.VerificationStatus)
	}
	if updated.Attempts != 0 {
		t.Errorf("attempts = %d, want 0 on success", updated.Attempts)
	}
	if notifier.succeededEmails != 1 {
		t.Errorf("succeededEmails = %d, want 1", notifier.succeededEmails)
	}
}

func TestPollVerificationCodeMissing(t *testing.T) {
	st := newFakeStore()
	notifier := &fakeNotifier{}
	scraper := &fakeScraper{
		snapshotID: "snap-miss",
		statuses:   []string{brightdata.StatusReady},
		records:    []map[string]any{{"signature": "no code here"}},
	}
	p := newTestProcessor(st, scraper, notifier)
	userID := seedUser(st)

	account, _ := p.ClaimAccount(context.Background(), userID, "https://www.tiktok.com/@someuser")
	account, _ = p.TriggerVerification(context.Background(), userID, account.ID, false)

	updated, err := p.PollVerification(context.Background(), userID, account.ID)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if updated.VerificationStatus != store.VerificationStatusFailed {
		t.Errorf("status = %q, want FAILED", updated.VerificationStatus)
	}
	if updated.Attempts != 1 {
		t.Errorf("attempts = %d, want 1 after failure", updated.Attempts)
	}
	if notifier.failedEmails != 1 {
		t.Errorf("failedEmails = %d, want 1", notifier.failedEmails)
	}
	// Failure never deletes the claim.
	if _, err := p.GetAccount(context.Background(), userID, updated.ID); err != nil {
		t.Errorf("account should still exist after failure: %v", err)
	}
}

func TestPollVerificationScrapeFailed(t *testing.T) {
	st := newFakeStore()
	scraper := &fakeScraper{snapshotID: "snap-bad", statuses: []string{brightdata.StatusFailed}}
	p := newTestProcessor(st, scraper, &fakeNotifier{})
	userID := seedUser(st)

	account, _ := p.ClaimAccount(context.Background(), userID, "https://www.tiktok.com/@someuser")
	account, _ = p.TriggerVerification(context.Background(), userID, account.ID, false)

	_, err := p.PollVerification(context.Background(), userID, account.ID)
	if !errors.Is(err, ErrScrapeFailed) {
		t.Errorf("expected ErrScrapeFailed, got %v", err)
	}
	stored, _ := st.GetSocialAccountByID(context.Background(), account.ID)
	if stored.VerificationStatus != store.VerificationStatusFailed {
		t.Errorf("status = %q, want FAILED", stored.VerificationStatus)
	}
}

func TestPollVerificationWithoutSnapshot(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st, &fakeScraper{}, &fakeNotifier{})
	userID := seedUser(st)

	account, _ := p.ClaimAccount(context.Background(), userID, "https://www.tiktok.com/@someuser")
	_, err := p.PollVerification(context.Background(), userID, account.ID)
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestCompleteFromWebhook(t *testing.T) {
	st := newFakeStore()
	p := newTestProcessor(st, &fakeScraper{snapshotID: "snap-hook"}, &fakeNotifier{})
	userID := seedUser(st)

	account, _ := p.ClaimAccount(context.Background(), userID, "https://www.instagram.com/someuser")
	account, _ = p.TriggerVerification(context.Background(), userID, account.ID, false)

	updated, err := p.CompleteFromWebhook(context.Background(), "snap-hook",
		[]map[string]any{{"biography": "bio with " + account.VerificationCode}})
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if updated.VerificationStatus != store.VerificationStatusVerified {
		t.Errorf("status = %q, want VERIFIED", updated.VerificationStatus)
	}

	if _, err := p.CompleteFromWebhook(context.Background(), "snap-unknown", nil); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestTriggerVerificationRegeneratesCode(t *testing.T) {
	st := newFakeStore()
	notifier := &fakeNotifier{}
	p := newTestProcessor(st, &fakeScraper{snapshotID: "snap-2"}, notifier)
	userID := seedUser(st)

	account, _ := p.ClaimAccount(context.Background(), userID, "https://www.tiktok.com/@someuser")
	updated, err := p.TriggerVerification(context.Background(), userID, account.ID, true)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if updated.VerificationCode == account.VerificationCode {
		t.Errorf("code should change when regenerate is requested")
	}
	if notifier.codeEmails != 2 {
		t.Errorf("codeEmails = %d, want 2 (claim + regenerate)", notifier.codeEmails)
	}
}
