package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JSONB is a custom type for JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("incompatible type for JSONB")
	}

	if len(data) == 0 {
		*j = make(JSONB)
		return nil
	}

	result := make(JSONB)
	if err := json.Unmarshal(data, &result); err != nil {
		return err
	}
	*j = result
	return nil
}

// User represents a platform account holder
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	PasswordHash string     `db:"password_hash" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// SocialAccount is a claimed social profile awaiting or holding verification
type SocialAccount struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	UserID             uuid.UUID  `db:"user_id" json:"user_id"`
	Platform           string     `db:"platform" json:"platform"`
	ProfileURL         string     `db:"profile_url" json:"profile_url"`
	Username           string     `db:"username" json:"username"`
	VerificationCode   string     `db:"verification_code" json:"verification_code"`
	VerificationStatus string     `db:"verification_status" json:"verification_status"`
	ScrapeStatus       string     `db:"scrape_status" json:"scrape_status"`
	SnapshotID         *string    `db:"snapshot_id" json:"snapshot_id,omitempty"`
	Attempts           int        `db:"attempts" json:"attempts"`
	ProfilePayload     JSONB      `db:"profile_payload" json:"profile_payload,omitempty"`
	VerifiedAt         *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Creator is an aggregated directory entry rolled up from scraped videos
type Creator struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Platform      string    `db:"platform" json:"platform"`
	Username      string    `db:"username" json:"username"`
	ProfileURL    string    `db:"profile_url" json:"profile_url"`
	FollowerCount int64     `db:"follower_count" json:"follower_count"`
	VideoCount    int64     `db:"video_count" json:"video_count"`
	TotalViews    int64     `db:"total_views" json:"total_views"`
	TotalLikes    int64     `db:"total_likes" json:"total_likes"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Video is a submitted video keyed by its canonical URL
type Video struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	CreatorID    *uuid.UUID `db:"creator_id" json:"creator_id,omitempty"`
	SubmittedBy  *uuid.UUID `db:"submitted_by" json:"submitted_by,omitempty"`
	Platform     string     `db:"platform" json:"platform"`
	CanonicalURL string     `db:"canonical_url" json:"canonical_url"`
	SnapshotID   *string    `db:"snapshot_id" json:"snapshot_id,omitempty"`
	ScrapeStatus string     `db:"scrape_status" json:"scrape_status"`
	TotalViews   int64      `db:"total_views" json:"total_views"`
	LikeCount    int64      `db:"like_count" json:"like_count"`
	CommentCount int64      `db:"comment_count" json:"comment_count"`
	ShareCount   int64      `db:"share_count" json:"share_count"`
	SaveCount    int64      `db:"save_count" json:"save_count"`
	RawPayload   JSONB      `db:"raw_payload" json:"raw_payload,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Community is a fan community that contests run inside of
type Community struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Slug        string     `db:"slug" json:"slug"`
	Description *string    `db:"description" json:"description,omitempty"`
	CreatedBy   uuid.UUID  `db:"created_by" json:"created_by"`
	MemberCount int64      `db:"member_count" json:"member_count"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// CommunityMember links a user to a community
type CommunityMember struct {
	ID          uuid.UUID `db:"id" json:"id"`
	CommunityID uuid.UUID `db:"community_id" json:"community_id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Role        string    `db:"role" json:"role"`
	JoinedAt    time.Time `db:"joined_at" json:"joined_at"`
}

// Contest is a time-windowed competition over a community's videos
type Contest struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	CommunityID uuid.UUID  `db:"community_id" json:"community_id"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description,omitempty"`
	Status      string     `db:"status" json:"status"`
	StartsAt    time.Time  `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time  `db:"ends_at" json:"ends_at"`
	CreatedBy   uuid.UUID  `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// ContestEntry is a video entered into a contest by a user
type ContestEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ContestID uuid.UUID `db:"contest_id" json:"contest_id"`
	VideoID   uuid.UUID `db:"video_id" json:"video_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LeaderboardRow is a ranked contest entry joined with its video metrics
type LeaderboardRow struct {
	Rank         int64     `db:"rank" json:"rank"`
	EntryID      uuid.UUID `db:"entry_id" json:"entry_id"`
	VideoID      uuid.UUID `db:"video_id" json:"video_id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	CanonicalURL string    `db:"canonical_url" json:"canonical_url"`
	Platform     string    `db:"platform" json:"platform"`
	TotalViews   int64     `db:"total_views" json:"total_views"`
	LikeCount    int64     `db:"like_count" json:"like_count"`
}

// RateLimit is a fixed-window request counter used when redis is unavailable
type RateLimit struct {
	ID            uuid.UUID `db:"id"`
	UserID        uuid.UUID `db:"user_id"`
	WindowStart   time.Time `db:"window_start"`
	WindowEnd     time.Time `db:"window_end"`
	RequestsCount int       `db:"requests_count"`
	RequestsLimit int       `db:"requests_limit"`
	IsThrottled   bool      `db:"is_throttled"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Campaign is a saved AI-generated activation concept
type Campaign struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	Name       string     `db:"name" json:"name"`
	ThemeKind  string     `db:"theme_kind" json:"theme_kind"`
	Suggestion JSONB      `db:"suggestion" json:"suggestion"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt  *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}
