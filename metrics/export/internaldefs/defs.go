package internaldefs

import (
	goProof "github.com/MrEthical07/goProof"
)

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   goProof.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine histogram to its exported name.
type HistogramDef struct {
	ID   goProof.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goProof.MetricIssuanceRequest, Name: "goproof_issuance_request_total", Help: "Token issuance requests."},
	{ID: goProof.MetricIssuanceSuccess, Name: "goproof_issuance_success_total", Help: "Tokens issued."},
	{ID: goProof.MetricIssuanceRejected, Name: "goproof_issuance_rejected_total", Help: "Issuance requests rejected as ineligible or already redeemed."},
	{ID: goProof.MetricIssuanceRateLimited, Name: "goproof_issuance_rate_limited_total", Help: "Issuance requests denied by the throttle."},
	{ID: goProof.MetricIssuanceDelivered, Name: "goproof_issuance_delivered_total", Help: "Tokens handed to an issue channel."},
	{ID: goProof.MetricDeliveryFailure, Name: "goproof_delivery_failure_total", Help: "Token or rejection notices the channel failed to deliver."},
	{ID: goProof.MetricRedemptionAttempt, Name: "goproof_redemption_attempt_total", Help: "Redemption attempts."},
	{ID: goProof.MetricRedemptionAccepted, Name: "goproof_redemption_accepted_total", Help: "Accepted redemptions."},
	{ID: goProof.MetricRedemptionDecodeFailed, Name: "goproof_redemption_decode_failed_total", Help: "Redemptions rejected because the code did not decode."},
	{ID: goProof.MetricRedemptionIneligible, Name: "goproof_redemption_ineligible_total", Help: "Redemptions rejected for an ineligible identity."},
	{ID: goProof.MetricRedemptionReplay, Name: "goproof_redemption_replay_total", Help: "Redemptions rejected because the identity already redeemed."},
	{ID: goProof.MetricReplayStorageFailure, Name: "goproof_replay_storage_failure_total", Help: "Replay store read or write failures."},
	{ID: goProof.MetricReplayReset, Name: "goproof_replay_reset_total", Help: "Replay store resets."},
	{ID: goProof.MetricRateLimitHit, Name: "goproof_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: goProof.MetricDecisionFailure, Name: "goproof_decision_failure_total", Help: "Redemption decisions the decision sink failed to apply."},
}

var HistogramDefs = []HistogramDef{
	{ID: goProof.MetricRedeemLatency, Name: "goproof_redeem_latency_seconds", Help: "Redeem latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's fixed
// latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundValues mirrors HistogramBounds without the +Inf bucket.
var HistogramBoundValues = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// OutcomeDef labels one redemption counter with the decision it counts.
type OutcomeDef struct {
	ID      goProof.MetricID
	Outcome string
}

// RedemptionOutcomeDefs partition redemption attempts by decision. Storage
// failures produce no decision and are counted separately.
var RedemptionOutcomeDefs = []OutcomeDef{
	{ID: goProof.MetricRedemptionAccepted, Outcome: "accepted"},
	{ID: goProof.MetricRedemptionDecodeFailed, Outcome: goProof.ReasonDecode.String()},
	{ID: goProof.MetricRedemptionIneligible, Outcome: goProof.ReasonInvalidIdentity.String()},
	{ID: goProof.MetricRedemptionReplay, Outcome: goProof.ReasonAlreadyRedeemed.String()},
}

const RedemptionOutcomeName = "goproof_redemption_outcome_total"

const RedemptionOutcomeHelp = "Redemption decisions by outcome."

const ReplayIdentitiesName = "goproof_replay_identities"

const ReplayIdentitiesHelp = "Identities recorded as redeemed in the replay store."

const AuditDroppedName = "goproof_audit_dropped_total"

const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// NormalizeBuckets copies raw into a fixed-size bucket array, zero-filling
// missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
