package domain

// PlatformID identifies a third-party advertising or analytics platform.
type PlatformID string

const (
	PlatformGoogleAds       PlatformID = "google_ads"
	PlatformGoogleAnalytics PlatformID = "google_analytics"
	PlatformMetaAds         PlatformID = "meta_ads"
	PlatformTikTokAds       PlatformID = "tiktok_ads"
)

// PlatformGroup identifies the OAuth credential family a platform belongs to.
// A single agency OAuth connection per group covers every platform in the
// group (one Google credential serves both Ads and Analytics).
type PlatformGroup string

const (
	GroupGoogle PlatformGroup = "google"
	GroupMeta   PlatformGroup = "meta"
	GroupTikTok PlatformGroup = "tiktok"
)

// Group returns the credential group for a platform.
func (p PlatformID) Group() PlatformGroup {
	switch p {
	case PlatformGoogleAds, PlatformGoogleAnalytics:
		return GroupGoogle
	case PlatformMetaAds:
		return GroupMeta
	case PlatformTikTokAds:
		return GroupTikTok
	default:
		return PlatformGroup(p)
	}
}

// Valid reports whether the platform is one of the known platforms.
func (p PlatformID) Valid() bool {
	switch p {
	case PlatformGoogleAds, PlatformGoogleAnalytics, PlatformMetaAds, PlatformTikTokAds:
		return true
	default:
		return false
	}
}

// DisplayName returns a human-readable name for a platform.
func (p PlatformID) DisplayName() string {
	switch p {
	case PlatformGoogleAds:
		return "Google Ads"
	case PlatformGoogleAnalytics:
		return "Google Analytics"
	case PlatformMetaAds:
		return "Meta Ads"
	case PlatformTikTokAds:
		return "TikTok Ads"
	default:
		return string(p)
	}
}
