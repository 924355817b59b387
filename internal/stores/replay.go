package stores

import (
	"errors"
	"strings"
)

var (
	ErrReplayUnavailable = errors.New("replay store unavailable")
	ErrReplayClosed      = errors.New("replay store closed")
)

func normalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
