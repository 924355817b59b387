package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	goProof "github.com/MrEthical07/goProof"
	"github.com/MrEthical07/goProof/middleware"
)

type issuanceRequest struct {
	Identity string `json:"identity"`
	Name     string `json:"name,omitempty"`
}

type issuanceResponse struct {
	Status string `json:"status"`
	Token  string `json:"token,omitempty"`
}

type redemptionRequest struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

type redemptionResponse struct {
	Status   string `json:"status"`
	Identity string `json:"identity,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type resetResponse struct {
	Cleared int `json:"cleared"`
}

func decodeJSON(r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst) == nil
}

func (h *Handler) handleIssuance(w http.ResponseWriter, r *http.Request) {
	var req issuanceRequest
	if !decodeJSON(r, &req) || strings.TrimSpace(req.Identity) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request"})
		return
	}

	ctx := goProof.WithRequester(r.Context(), req.Name)

	if h.opts.ExposeTokens {
		token, err := h.engine.RequestIssuance(ctx, req.Identity)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, issuanceResponse{Status: "issued", Token: token})
		return
	}

	if err := h.engine.IssueTo(ctx, req.Identity, h.opts.Channel); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, issuanceResponse{Status: "sent"})
}

// handleRedemption answers 200 for every decision, accepted or not. Only
// failures to decide are errors.
func (h *Handler) handleRedemption(w http.ResponseWriter, r *http.Request) {
	var req redemptionRequest
	if !decodeJSON(r, &req) || goProof.NormalizeCode(req.Code) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request"})
		return
	}

	ctx := goProof.WithRequester(r.Context(), req.Name)
	decision, err := h.engine.Redeem(ctx, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, redemptionResponse{
		Status:   decision.Status.String(),
		Identity: decision.Identity,
		Reason:   decision.Reason.String(),
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.RedeemedCount(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.engine.ResetReplay(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var subject string
	if claims, ok := middleware.AdminFromContext(r.Context()); ok {
		subject = claims.Subject
	}
	h.logger.WarnContext(r.Context(), "replay store reset",
		"component", "httpapi",
		"admin", subject,
		"cleared", cleared,
	)
	writeJSON(w, http.StatusOK, resetResponse{Cleared: cleared})
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.SecurityReport())
}
