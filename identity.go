package goProof

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/MrEthical07/goProof/internal/flows"
)

// NormalizeIdentity returns the comparison form of an identity: trimmed and
// lower-cased.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// NormalizeCode strips every whitespace character from a submitted code.
// Mail clients and form fields wrap long tokens.
func NormalizeCode(code string) string {
	return flows.StripWhitespace(code)
}

// ParseRequester splits an address header into display name and address.
//
// A bare address yields an empty name.
func ParseRequester(from string) (name, identity string, err error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(from))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	return addr.Name, addr.Address, nil
}
