package eligibility

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoRule is returned by New when neither a pattern nor an allow-list is given.
var ErrNoRule = errors.New("eligibility requires a pattern or an allow-list")

// Classifier decides which identities may take part.
//
// A Classifier is immutable after New and safe for concurrent use without locking.
type Classifier struct {
	source  string
	pattern *regexp.Regexp
	allowed map[string]struct{}
}

// New compiles pattern once and normalizes allowList to lower case.
//
// The pattern must match from the first character of the identity; it may
// stop short of the end unless it ends in `$`. An empty pattern disables the
// pattern rule; it does not match everything. Blank allow-list entries are
// discarded.
func New(pattern string, allowList []string) (*Classifier, error) {
	c := &Classifier{
		allowed: make(map[string]struct{}, len(allowList)),
	}

	if pattern != "" {
		re, err := regexp.Compile(`^(?:` + pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("compile eligibility pattern: %w", err)
		}
		c.source = pattern
		c.pattern = re
	}

	for _, entry := range allowList {
		normalized := strings.ToLower(strings.TrimSpace(entry))
		if normalized == "" {
			continue
		}
		c.allowed[normalized] = struct{}{}
	}

	if c.pattern == nil && len(c.allowed) == 0 {
		return nil, ErrNoRule
	}

	return c, nil
}

// IsEligible reports whether the lower-cased identity matches the pattern or
// is on the allow-list.
func (c *Classifier) IsEligible(identity string) bool {
	if c == nil {
		return false
	}

	lowered := strings.ToLower(identity)
	if c.pattern != nil && c.pattern.MatchString(lowered) {
		return true
	}

	_, ok := c.allowed[strings.TrimSpace(lowered)]
	return ok
}

// Pattern returns the pattern as configured, or "" when disabled.
func (c *Classifier) Pattern() string {
	if c == nil {
		return ""
	}
	return c.source
}

// Anchored reports whether the pattern is anchored at the end. The start is
// always anchored; without an end anchor `[a-z]+@example\.com` also admits
// "x@example.com.attacker.org".
func (c *Classifier) Anchored() bool {
	src := c.Pattern()
	if src == "" {
		return false
	}
	return strings.HasSuffix(src, "$") || strings.HasSuffix(src, `\z`)
}

// AllowListSize returns the number of distinct allow-listed identities.
func (c *Classifier) AllowListSize() int {
	if c == nil {
		return 0
	}
	return len(c.allowed)
}
