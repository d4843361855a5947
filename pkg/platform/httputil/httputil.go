package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "badgeworks/pkg/domain-errors"
)

// ErrorResponse is the JSON envelope for every error written by the service.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding failure cannot change the status.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
// Internal and unavailable errors never expose their message, since it may
// carry driver or credential detail.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		response := ErrorResponse{
			Error:  DomainCodeToHTTPCode(domainErr.Code),
			Reason: domainErr.Reason,
		}
		if exposesMessage(domainErr.Code) {
			response.Description = domainErr.Message
		}
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), response)
		return
	}

	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: DomainCodeToHTTPCode(dErrors.CodeInternal),
	})
}

func exposesMessage(code dErrors.Code) bool {
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable, dErrors.CodeUpstream:
		return false
	default:
		return true
	}
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeUpstream:
		return http.StatusBadGateway
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to the "error" field of the JSON body.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeBadRequest:
		return "bad_request"
	case dErrors.CodeValidation:
		return "validation_error"
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeUnavailable:
		return "service_unavailable"
	case dErrors.CodeUpstream:
		return "upstream_error"
	case dErrors.CodeTimeout:
		return "timeout"
	default:
		return "internal_error"
	}
}
