package verification

import (
	"fanforge-server/internal/platform"
)

// Bio field names vary by vendor dataset. Platform-specific orderings are
// tried first, then a generic fallback.
var bioFieldsByPlatform = map[platform.Platform][]string{
	platform.PlatformTikTok:    {"biography", "signature", "bio", "description"},
	platform.PlatformYouTube:   {"Description", "description", "about", "bio"},
	platform.PlatformInstagram: {"biography", "bio", "description", "about"},
}

var genericBioFields = []string{"biography", "bio", "signature", "description", "about"}

// ExtractBio pulls the profile bio text out of a raw vendor payload using an
// ordered field fallback. It never fails; a miss is "".
func ExtractBio(payload map[string]any, p platform.Platform) string {
	if payload == nil {
		return ""
	}

	fields, ok := bioFieldsByPlatform[p]
	if !ok {
		fields = genericBioFields
	}

	for _, field := range fields {
		if s, ok := payload[field].(string); ok && s != "" {
			return s
		}
	}

	// Some dataset versions wrap the profile record.
	for _, wrapper := range []string{"profile", "account", "data"} {
		if m, ok := payload[wrapper].(map[string]any); ok {
			if s := ExtractBio(m, p); s != "" {
				return s
			}
		}
	}

	return ""
}
