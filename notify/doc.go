// Package notify renders the human-facing messages of a goProof deployment
// and sends them by mail.
//
// [MailChannel] implements goProof.IssueChannel, goProof.RejectionNotifier
// and goProof.DecisionSink, so one value can be handed to
// Engine.ProcessIssuanceRequests, Engine.ProcessRedemptions and Engine.Run.
// Transport is an injected [SendFunc]; [NewSMTPSender] provides one backed by
// net/smtp.
package notify
