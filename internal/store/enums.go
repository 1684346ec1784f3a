package store

// Platform ENUMs
const (
	PlatformTikTok    = "tiktok"
	PlatformInstagram = "instagram"
	PlatformYouTube   = "youtube"
	PlatformUnknown   = "unknown"
)

// Social Account ENUMs
const (
	VerificationStatusPending  = "PENDING"
	VerificationStatusVerified = "VERIFIED"
	VerificationStatusFailed   = "FAILED"
)

const (
	ScrapeStatusPending   = "PENDING"
	ScrapeStatusCompleted = "COMPLETED"
)

// Community Member ENUMs
const (
	CommunityRoleOwner  = "owner"
	CommunityRoleMember = "member"
)

// Contest ENUMs
const (
	ContestStatusDraft    = "draft"
	ContestStatusActive   = "active"
	ContestStatusEnded    = "ended"
	ContestStatusArchived = "archived"
)

// Campaign ENUMs
const (
	CampaignThemeSport     = "sport"
	CampaignThemeFranchise = "franchise"
)
