package security

// Report summarises the security-relevant posture of a running engine.
type Report struct {
	ReplayBackend    string   `json:"replay_backend"`
	ReplayInjected   bool     `json:"replay_injected"`
	ReplayShared     bool     `json:"replay_shared"`
	PatternSet       bool     `json:"pattern_set"`
	PatternAnchored  bool     `json:"pattern_anchored"`
	AllowListSize    int      `json:"allow_list_size"`
	IdentityThrottle bool     `json:"identity_throttle"`
	IPThrottle       bool     `json:"ip_throttle"`
	AuditEnabled     bool     `json:"audit_enabled"`
	AuditDropIfFull  bool     `json:"audit_drop_if_full"`
	MetricsEnabled   bool     `json:"metrics_enabled"`
	ResetEnabled     bool     `json:"reset_enabled"`
	Warnings         []string `json:"warnings"`
}

type ReportInput struct {
	ReplayBackend    string
	ReplayInjected   bool
	Pattern          string
	PatternAnchored  bool
	AllowListSize    int
	IdentityThrottle bool
	IPThrottle       bool
	AuditEnabled     bool
	AuditDropIfFull  bool
	MetricsEnabled   bool
	ResetEnabled     bool
}

const (
	WarnPatternUnanchored = "eligibility pattern is not anchored at the end"
	WarnResetEnabled      = "replay reset is enabled"
	WarnNoThrottle        = "issuance is not throttled"
	WarnAuditDisabled     = "audit is disabled"
	WarnAuditMayDrop      = "audit drops events when the buffer is full"
	WarnLocalReplay       = "file replay log is local to one process"
)

func BuildReport(input ReportInput) Report {
	r := Report{
		ReplayBackend:    input.ReplayBackend,
		ReplayInjected:   input.ReplayInjected,
		ReplayShared:     !input.ReplayInjected && (input.ReplayBackend == "redis" || input.ReplayBackend == "sqlite"),
		PatternSet:       input.Pattern != "",
		PatternAnchored:  input.Pattern != "" && input.PatternAnchored,
		AllowListSize:    input.AllowListSize,
		IdentityThrottle: input.IdentityThrottle,
		IPThrottle:       input.IPThrottle,
		AuditEnabled:     input.AuditEnabled,
		AuditDropIfFull:  input.AuditEnabled && input.AuditDropIfFull,
		MetricsEnabled:   input.MetricsEnabled,
		ResetEnabled:     input.ResetEnabled,
	}

	// Without an end anchor the pattern admits any identity that starts with a match.
	if r.PatternSet && !r.PatternAnchored {
		r.Warnings = append(r.Warnings, WarnPatternUnanchored)
	}
	if r.ResetEnabled {
		r.Warnings = append(r.Warnings, WarnResetEnabled)
	}
	if !r.IdentityThrottle && !r.IPThrottle {
		r.Warnings = append(r.Warnings, WarnNoThrottle)
	}
	if !r.AuditEnabled {
		r.Warnings = append(r.Warnings, WarnAuditDisabled)
	} else if r.AuditDropIfFull {
		r.Warnings = append(r.Warnings, WarnAuditMayDrop)
	}
	if !r.ReplayInjected && input.ReplayBackend == "file" {
		r.Warnings = append(r.Warnings, WarnLocalReplay)
	}
	return r
}
