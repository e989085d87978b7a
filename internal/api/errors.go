package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"workmarket/internal/domain"
)

const (
	codeBadRequest        = "bad_request"
	codeValidation        = "validation_failed"
	codeIllegalTransition = "illegal_transition"
	codeNotFound          = "not_found"
	codeConflict          = "conflict"
	codeRateLimited       = "rate_limited"
	codeUnauthorized      = "unauthorized"
	codeForbidden         = "forbidden"
	codeInternal          = "internal"
)

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
	Allowed []string `json:"allowed,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string, details ...string) {
	writeJSON(w, statusCode, errorEnvelope{Error: errorBody{Code: code, Message: message, Details: details}})
}

// classify maps a service error to an HTTP status and an envelope code.
func classify(err error) (int, string) {
	var terr *domain.TransitionError
	switch {
	case errors.As(err, &terr):
		return http.StatusUnprocessableEntity, codeIllegalTransition
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, codeConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, codeRateLimited
	}
	if _, ok := domain.ValidationMessages(err); ok {
		return http.StatusUnprocessableEntity, codeValidation
	}
	return http.StatusInternalServerError, codeInternal
}

func writeServiceError(w http.ResponseWriter, err error) {
	statusCode, code := classify(err)
	if statusCode == http.StatusInternalServerError {
		// наружу не отдаём детали
		writeError(w, statusCode, code, "internal error")
		return
	}
	details, _ := domain.ValidationMessages(err)
	body := errorBody{Code: code, Message: err.Error(), Details: details}
	var terr *domain.TransitionError
	if errors.As(err, &terr) {
		body.Allowed = terr.Allowed
	}
	writeJSON(w, statusCode, errorEnvelope{Error: body})
}

func grpcError(err error) error {
	statusCode, _ := classify(err)
	var c codes.Code
	switch statusCode {
	case http.StatusUnprocessableEntity:
		c = codes.InvalidArgument
		var terr *domain.TransitionError
		if errors.As(err, &terr) {
			c = codes.FailedPrecondition
		}
	case http.StatusNotFound:
		c = codes.NotFound
	case http.StatusConflict:
		c = codes.Aborted
	case http.StatusTooManyRequests:
		c = codes.ResourceExhausted
	default:
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(c, err.Error())
}
