package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// PayloadChoice returns the trimmed payload if it matches one of the
// allowed values. Tone-preset buttons validate through this so a stale
// or forged payload never reaches the profile.
func PayloadChoice(c tele.Context, allowed ...string) (string, bool) {
	p := strings.TrimSpace(CallbackPayload(c))
	if p == "" {
		return "", false
	}
	for _, a := range allowed {
		if p == a {
			return p, true
		}
	}
	return "", false
}

// IsCancel reports whether the payload is the shared cancel marker.
func IsCancel(c tele.Context) bool {
	return strings.TrimSpace(CallbackPayload(c)) == "cancel"
}
