package notify

import (
	"context"
	"errors"
	"strings"
	"text/template"

	goProof "github.com/MrEthical07/goProof"
)

// SendFunc delivers one plain-text message.
type SendFunc func(ctx context.Context, to, subject, body string) error

const (
	DefaultIssueSubject    = "Your verification code"
	DefaultRejectSubject   = "Your verification request"
	DefaultAcceptedSubject = "You have been verified"
)

// MailConfig sets message subjects. Empty fields take the defaults.
type MailConfig struct {
	IssueSubject    string
	RejectSubject   string
	AcceptedSubject string
}

// MailChannel renders messages with Templates and sends them with a SendFunc.
type MailChannel struct {
	send      SendFunc
	templates *Templates
	config    MailConfig
}

var (
	_ goProof.IssueChannel      = (*MailChannel)(nil)
	_ goProof.RejectionNotifier = (*MailChannel)(nil)
	_ goProof.DecisionSink      = (*MailChannel)(nil)
)

// NewMailChannel returns a MailChannel. A nil templates value uses
// DefaultTemplates.
func NewMailChannel(send SendFunc, templates *Templates, cfg MailConfig) (*MailChannel, error) {
	if send == nil {
		return nil, errors.New("notify: send function is required")
	}
	if templates == nil {
		templates = DefaultTemplates()
	}
	if cfg.IssueSubject == "" {
		cfg.IssueSubject = DefaultIssueSubject
	}
	if cfg.RejectSubject == "" {
		cfg.RejectSubject = DefaultRejectSubject
	}
	if cfg.AcceptedSubject == "" {
		cfg.AcceptedSubject = DefaultAcceptedSubject
	}
	return &MailChannel{send: send, templates: templates, config: cfg}, nil
}

// Deliver sends token to identity. The greeting uses the requester name
// attached with goProof.WithRequester.
func (m *MailChannel) Deliver(ctx context.Context, identity, token string) error {
	body, err := m.templates.render(m.templates.issued, MessageData{
		Name:     goProof.RequesterFromContext(ctx),
		Identity: identity,
		Code:     token,
	})
	if err != nil {
		return err
	}
	return m.send(ctx, identity, m.config.IssueSubject, body)
}

// NotifyRejected tells identity why no code was sent. Reasons other than
// ineligibility, a previous redemption or throttling are not reported.
func (m *MailChannel) NotifyRejected(ctx context.Context, name, identity string, reason error) error {
	var tpl *template.Template
	switch {
	case errors.Is(reason, goProof.ErrInvalidIdentity):
		tpl = m.templates.ineligible
	case errors.Is(reason, goProof.ErrAlreadyRedeemed):
		tpl = m.templates.duplicate
	case errors.Is(reason, goProof.ErrIssuanceRateLimited):
		tpl = m.templates.throttled
	default:
		return nil
	}

	body, err := m.templates.render(tpl, MessageData{Name: name, Identity: identity})
	if err != nil {
		return err
	}
	return m.send(ctx, identity, m.config.RejectSubject, body)
}

// Resolve sends the acceptance notice for accepted redemptions. Rejected
// decisions produce no mail.
func (m *MailChannel) Resolve(ctx context.Context, pending goProof.PendingRedemption, decision goProof.Redemption) error {
	if !decision.Accepted() {
		return nil
	}
	if strings.TrimSpace(decision.Identity) == "" {
		return errors.New("notify: accepted decision without identity")
	}

	body, err := m.templates.render(m.templates.accepted, MessageData{
		Name:     pending.RequesterName,
		Identity: decision.Identity,
	})
	if err != nil {
		return err
	}
	return m.send(ctx, decision.Identity, m.config.AcceptedSubject, body)
}
