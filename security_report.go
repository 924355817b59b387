package goProof

import "github.com/MrEthical07/goProof/internal/security"

// SecurityReport describes the engine's replay, eligibility, throttle and
// audit posture, with human-readable warnings for weak settings.
type SecurityReport = security.Report

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	backend := string(e.config.Replay.Backend)
	if !e.ownsReplay {
		backend = "custom"
	}

	return security.BuildReport(security.ReportInput{
		ReplayBackend:    backend,
		ReplayInjected:   !e.ownsReplay,
		Pattern:          e.classifier.Pattern(),
		PatternAnchored:  e.classifier.Anchored(),
		AllowListSize:    e.classifier.AllowListSize(),
		IdentityThrottle: e.limiter != nil && e.config.Issuance.EnableThrottle,
		IPThrottle:       e.limiter != nil && e.config.Issuance.EnableIPThrottle,
		AuditEnabled:     e.audit != nil,
		AuditDropIfFull:  e.config.Audit.DropIfFull,
		MetricsEnabled:   e.metrics.Enabled(),
		ResetEnabled:     e.config.Reset.Enabled,
	})
}
