package domain

import "testing"

func TestPlatformGroup(t *testing.T) {
	tests := []struct {
		platform PlatformID
		group    PlatformGroup
	}{
		{PlatformGoogleAds, GroupGoogle},
		{PlatformGoogleAnalytics, GroupGoogle},
		{PlatformMetaAds, GroupMeta},
		{PlatformTikTokAds, GroupTikTok},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			if got := tt.platform.Group(); got != tt.group {
				t.Errorf("expected group %s, got %s", tt.group, got)
			}
		})
	}
}

func TestPlatformValid(t *testing.T) {
	for _, p := range []PlatformID{PlatformGoogleAds, PlatformGoogleAnalytics, PlatformMetaAds, PlatformTikTokAds} {
		if !p.Valid() {
			t.Errorf("expected %s to be valid", p)
		}
	}

	for _, p := range []PlatformID{"", "linkedin_ads", "GOOGLE_ADS"} {
		if p.Valid() {
			t.Errorf("expected %q to be invalid", p)
		}
	}
}
