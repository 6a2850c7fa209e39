package server

import (
	"encoding/json"
	"net/http"

	"github.com/thywilljoshua/urdu-link/internal/ai"
	"github.com/thywilljoshua/urdu-link/internal/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a domain error type to an HTTP status.
func statusFor(err error) int {
	switch domain.TypeOf(err) {
	case domain.ErrorTypeSizeLimit:
		return http.StatusRequestEntityTooLarge
	case domain.ErrorTypeBusy:
		return http.StatusConflict
	case domain.ErrorTypeValidation, domain.ErrorTypeUnsupported:
		return http.StatusBadRequest
	case domain.ErrorTypeRemoteCall, domain.ErrorTypeMalformedResponse:
		return http.StatusBadGateway
	case domain.ErrorTypeConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	kind := string(domain.TypeOf(err))
	switch {
	case ai.IsNotConfigured(err):
		kind = "not_configured"
	case kind == "":
		kind = "internal"
	}
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: kind, Message: err.Error()})
}
