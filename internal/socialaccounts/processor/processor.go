package processor

import (
	"context"
	"errors"
	"fmt"

	"fanforge-server/internal/clients/brightdata"
	"fanforge-server/internal/config"
	"fanforge-server/internal/observability"
	"fanforge-server/internal/platform"
	"fanforge-server/internal/store"
	"fanforge-server/internal/verification"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedPlatform  = errors.New("unsupported platform")
	ErrAccountNotFound      = errors.New("social account not found")
	ErrAccountNotOwned      = errors.New("social account does not belong to user")
	ErrAccountAlreadyExists = errors.New("social account already claimed")
	ErrAlreadyVerified      = errors.New("social account already verified")
	ErrNoSnapshot           = errors.New("no scrape job in flight for account")
	ErrScrapeFailed         = errors.New("scrape job failed")
	ErrVendorUnavailable    = errors.New("scrape vendor unavailable")
)

// Store is the persistence surface the processor needs.
type Store interface {
	CreateSocialAccount(ctx context.Context, params store.CreateSocialAccountParams) (store.SocialAccount, error)
	GetSocialAccountByID(ctx context.Context, accountID uuid.UUID) (store.SocialAccount, error)
	GetSocialAccountBySnapshotID(ctx context.Context, snapshotID string) (store.SocialAccount, error)
	GetSocialAccountByProfileURL(ctx context.Context, userID uuid.UUID, profileURL string) (store.SocialAccount, error)
	ListSocialAccountsByUser(ctx context.Context, userID uuid.UUID) ([]store.SocialAccount, error)
	DeleteSocialAccount(ctx context.Context, accountID, userID uuid.UUID) error
	ResetSocialAccountVerification(ctx context.Context, accountID uuid.UUID, snapshotID string, code string) (store.SocialAccount, error)
	MarkSocialAccountVerified(ctx context.Context, accountID uuid.UUID, profilePayload store.JSONB) (store.SocialAccount, error)
	MarkSocialAccountFailed(ctx context.Context, accountID uuid.UUID, profilePayload store.JSONB) (store.SocialAccount, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (store.User, error)
}

// ScrapeClient triggers and tracks vendor scrape jobs.
type ScrapeClient interface {
	TriggerCollection(ctx context.Context, datasetID, targetURL string) (string, error)
	SnapshotStatus(ctx context.Context, snapshotID string) (string, error)
	FetchSnapshot(ctx context.Context, snapshotID string) ([]map[string]any, error)
}

// Notifier sends verification lifecycle emails.
type Notifier interface {
	SendVerificationCodeEmail(ctx context.Context, to, platform, username, code string) error
	SendVerificationSucceededEmail(ctx context.Context, to, platform, username string) error
	SendVerificationFailedEmail(ctx context.Context, to, platform, username, code string) error
}

type Processor struct {
	store    Store
	scraper  ScrapeClient
	notifier Notifier
	cfg      config.BrightDataConfig
	pollCfg  config.VerificationConfig
	logger   *observability.Logger
}

func New(st Store, scraper ScrapeClient, notifier Notifier, cfg config.BrightDataConfig,
	pollCfg config.VerificationConfig, logger *observability.Logger) Processor {
	return Processor{
		store:    st,
		scraper:  scraper,
		notifier: notifier,
		cfg:      cfg,
		pollCfg:  pollCfg,
		logger:   logger,
	}
}

// ClaimAccount registers a profile URL for a user and issues the code to
// place in its bio. The profile URL is stored in canonical form so the same
// profile cannot be claimed twice by the same user.
func (p *Processor) ClaimAccount(ctx context.Context, userID uuid.UUID, profileURL string) (store.SocialAccount, error) {
	detected := platform.Detect(profileURL)
	if detected == platform.PlatformUnknown {
		return store.SocialAccount{}, ErrUnsupportedPlatform
	}

	canonical := platform.StandardizeProfileURL(profileURL)
	username := platform.UsernameFromProfileURL(canonical)

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "platform", Value: string(detected)},
		observability.Field{Key: "profile_url", Value: canonical},
	)

	if _, err := p.store.GetSocialAccountByProfileURL(ctx, userID, canonical); err == nil {
		return store.SocialAccount{}, ErrAccountAlreadyExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.SocialAccount{}, err
	}

	account, err := p.store.CreateSocialAccount(ctx, store.CreateSocialAccountParams{
		UserID:           userID,
		Platform:         string(detected),
		ProfileURL:       canonical,
		Username:         username,
		VerificationCode: verification.GenerateCode(),
	})
	if err != nil {
		return store.SocialAccount{}, err
	}

	p.notify(ctx, userID, func(to string) error {
		return p.notifier.SendVerificationCodeEmail(ctx, to, account.Platform, account.Username, account.VerificationCode)
	})

	p.logger.Info(ctx, "social account claimed")
	return account, nil
}

func (p *Processor) ListAccounts(ctx context.Context, userID uuid.UUID) ([]store.SocialAccount, error) {
	return p.store.ListSocialAccountsByUser(ctx, userID)
}

func (p *Processor) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (store.SocialAccount, error) {
	account, err := p.store.GetSocialAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.SocialAccount{}, ErrAccountNotFound
		}
		return store.SocialAccount{}, err
	}
	if account.UserID != userID {
		return store.SocialAccount{}, ErrAccountNotOwned
	}
	return account, nil
}

// DeleteAccount removes a claimed profile. Deletion is always an explicit
// user action; failed verification never deletes the row.
func (p *Processor) DeleteAccount(ctx context.Context, userID, accountID uuid.UUID) error {
	err := p.store.DeleteSocialAccount(ctx, accountID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	return err
}

// TriggerVerification starts a scrape of the profile and puts the account
// back into PENDING. Retriggering after a failure issues a fresh code when
// regenerateCode is set; attempts carry over.
func (p *Processor) TriggerVerification(ctx context.Context, userID, accountID uuid.UUID, regenerateCode bool) (store.SocialAccount, error) {
	account, err := p.GetAccount(ctx, userID, accountID)
	if err != nil {
		return store.SocialAccount{}, err
	}
	if account.VerificationStatus == store.VerificationStatusVerified {
		return store.SocialAccount{}, ErrAlreadyVerified
	}

	datasetID, err := p.datasetFor(account.Platform)
	if err != nil {
		return store.SocialAccount{}, err
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "social_account_id", Value: account.ID.String()},
		observability.Field{Key: "platform", Value: account.Platform},
	)

	snapshotID, err := p.scraper.TriggerCollection(ctx, datasetID, account.ProfileURL)
	if err != nil {
		p.logger.Error(ctx, "failed to trigger profile scrape", err)
		return store.SocialAccount{}, fmt.Errorf("%w: %v", ErrVendorUnavailable, err)
	}

	code := account.VerificationCode
	if regenerateCode {
		code = verification.GenerateCode()
	}

	account, err = p.store.ResetSocialAccountVerification(ctx, account.ID, snapshotID, code)
	if err != nil {
		return store.SocialAccount{}, err
	}

	if regenerateCode {
		p.notify(ctx, userID, func(to string) error {
			return p.notifier.SendVerificationCodeEmail(ctx, to, account.Platform, account.Username, account.VerificationCode)
		})
	}

	p.logger.Info(ctx, "verification triggered")
	return account, nil
}

// PollVerification blocks until the in-flight scrape reaches a terminal
// state, then correlates the bio and records the outcome. Vendor hiccups are
// retried until the deadline; the deadline surfaces
// verification.ErrVerificationTimeout without changing the account.
func (p *Processor) PollVerification(ctx context.Context, userID, accountID uuid.UUID) (store.SocialAccount, error) {
	account, err := p.GetAccount(ctx, userID, accountID)
	if err != nil {
		return store.SocialAccount{}, err
	}
	if account.VerificationStatus == store.VerificationStatusVerified {
		return account, nil
	}
	if account.SnapshotID == nil {
		return store.SocialAccount{}, ErrNoSnapshot
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "social_account_id", Value: account.ID.String()},
		observability.Field{Key: "snapshot_id", Value: *account.SnapshotID},
	)

	var result store.SocialAccount
	err = verification.Poll(ctx, p.pollCfg.PollInterval, p.pollCfg.PollDeadline, func(ctx context.Context) (bool, error) {
		done, updated, err := p.checkSnapshot(ctx, account)
		if done && err == nil {
			result = updated
		}
		return done, err
	})
	if err != nil {
		return store.SocialAccount{}, err
	}
	return result, nil
}

// CheckAccountOnce performs a single non-blocking status check for the
// background sweeper. done is false while the job is still running.
func (p *Processor) CheckAccountOnce(ctx context.Context, account store.SocialAccount) (bool, error) {
	if account.SnapshotID == nil {
		return true, ErrNoSnapshot
	}
	done, _, err := p.checkSnapshot(ctx, account)
	return done, err
}

// CompleteFromWebhook handles a vendor callback delivering the finished
// profile payload for a snapshot.
func (p *Processor) CompleteFromWebhook(ctx context.Context, snapshotID string, records []map[string]any) (store.SocialAccount, error) {
	account, err := p.store.GetSocialAccountBySnapshotID(ctx, snapshotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.SocialAccount{}, ErrAccountNotFound
		}
		return store.SocialAccount{}, err
	}
	if account.VerificationStatus == store.VerificationStatusVerified {
		return account, nil
	}
	return p.correlate(ctx, account, records)
}

// checkSnapshot consults the vendor once and, on a terminal status, runs the
// correlation. Errors while the job is unfinished are transient.
func (p *Processor) checkSnapshot(ctx context.Context, account store.SocialAccount) (bool, store.SocialAccount, error) {
	status, err := p.scraper.SnapshotStatus(ctx, *account.SnapshotID)
	if err != nil {
		return false, store.SocialAccount{}, err
	}

	switch status {
	case brightdata.StatusReady:
		records, err := p.scraper.FetchSnapshot(ctx, *account.SnapshotID)
		if err != nil {
			if errors.Is(err, brightdata.ErrSnapshotNotReady) {
				return false, store.SocialAccount{}, nil
			}
			return false, store.SocialAccount{}, err
		}
		updated, err := p.correlate(ctx, account, records)
		return true, updated, err
	case brightdata.StatusFailed:
		updated, err := p.store.MarkSocialAccountFailed(ctx, account.ID, nil)
		if err != nil {
			return true, store.SocialAccount{}, err
		}
		return true, updated, ErrScrapeFailed
	default:
		return false, store.SocialAccount{}, nil
	}
}

// correlate extracts the bio from the scraped payload and matches the code.
func (p *Processor) correlate(ctx context.Context, account store.SocialAccount, records []map[string]any) (store.SocialAccount, error) {
	var payload map[string]any
	if len(records) > 0 {
		payload = records[0]
	}

	bio := verification.ExtractBio(payload, platform.Platform(account.Platform))
	matched := verification.VerifyCodeInBio(bio, account.VerificationCode)

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "social_account_id", Value: account.ID.String()},
		observability.Field{Key: "code_matched", Value: matched},
	)

	var updated store.SocialAccount
	var err error
	if matched {
		updated, err = p.store.MarkSocialAccountVerified(ctx, account.ID, store.JSONB(payload))
	} else {
		updated, err = p.store.MarkSocialAccountFailed(ctx, account.ID, store.JSONB(payload))
	}
	if err != nil {
		return store.SocialAccount{}, err
	}

	p.notify(ctx, account.UserID, func(to string) error {
		if matched {
			return p.notifier.SendVerificationSucceededEmail(ctx, to, updated.Platform, updated.Username)
		}
		return p.notifier.SendVerificationFailedEmail(ctx, to, updated.Platform, updated.Username, updated.VerificationCode)
	})

	p.logger.Info(ctx, "verification correlated")
	return updated, nil
}

// notify sends a lifecycle email best-effort; delivery failures never fail
// the verification flow.
func (p *Processor) notify(ctx context.Context, userID uuid.UUID, send func(to string) error) {
	if p.notifier == nil {
		return
	}
	user, err := p.store.GetUserByID(ctx, userID)
	if err != nil {
		p.logger.InfoWithError(ctx, "failed to look up user for notification", err)
		return
	}
	if err := send(user.Email); err != nil {
		p.logger.InfoWithError(ctx, "failed to send notification email", err)
	}
}

func (p *Processor) datasetFor(accountPlatform string) (string, error) {
	switch accountPlatform {
	case store.PlatformTikTok:
		return p.cfg.TikTokDatasetID, nil
	case store.PlatformInstagram:
		return p.cfg.InstagramDatasetID, nil
	case store.PlatformYouTube:
		return p.cfg.YouTubeDatasetID, nil
	default:
		return "", ErrUnsupportedPlatform
	}
}
