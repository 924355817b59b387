package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	goProof "github.com/MrEthical07/goProof"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorStatus maps engine errors to a status and a stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, goProof.ErrInvalidIdentity):
		return http.StatusForbidden, "invalid_identity"
	case errors.Is(err, goProof.ErrAlreadyRedeemed):
		return http.StatusConflict, "already_redeemed"
	case errors.Is(err, goProof.ErrIssuanceRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, goProof.ErrResetDisabled):
		return http.StatusForbidden, "reset_disabled"
	case errors.Is(err, goProof.ErrDeliveryFailed):
		return http.StatusBadGateway, "delivery_failed"
	case errors.Is(err, goProof.ErrStorageFailure),
		errors.Is(err, goProof.ErrIssuanceUnavailable),
		errors.Is(err, goProof.ErrEngineClosed),
		errors.Is(err, goProof.ErrEngineNotReady):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"component", "httpapi",
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, errorBody{Error: code})
}
