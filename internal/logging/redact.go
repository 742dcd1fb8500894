package logging

import (
	"strings"
)

// SensitiveKeyPatterns are substrings of attribute keys whose values name a
// player account. Matching is case-insensitive.
var SensitiveKeyPatterns = []string{
	"UID",
	"STEAM",
	"ACCOUNT",
	"XUID",
	"USN",
	"PERSONA",
}

// steamIDPrefix starts every 64-bit Steam id of an individual account.
const steamIDPrefix = "7656119"

// MaskValue masks a value, keeping only the last 4 characters visible.
// Values of 4 characters or fewer are fully masked.
func MaskValue(value string) string {
	if len(value) <= 4 {
		return "********"
	}
	return "****" + value[len(value)-4:]
}

// ShouldMask returns true if the attribute key suggests an account id.
func ShouldMask(key string) bool {
	upper := strings.ToUpper(key)
	for _, pattern := range SensitiveKeyPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}

// LooksLikeSteamID returns true for values shaped like a 64-bit Steam id,
// whatever key they are logged under.
func LooksLikeSteamID(value string) bool {
	if len(value) != 17 || !strings.HasPrefix(value, steamIDPrefix) {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
