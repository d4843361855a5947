package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "badgeworks/pkg/domain-errors"
)

// maxBodyBytes bounds an issue or share payload. Real ones are a few hundred bytes.
const maxBodyBytes = 64 << 10

// Validatable request bodies check themselves after decoding.
type Validatable interface {
	Validate() error
}

// Normalizable request bodies tidy their fields (trim, lower-case) before Validate runs.
type Normalizable interface {
	Normalize()
}

// DecodeJSON reads the request body into a new T. When the body is not JSON
// for T it answers 400 bad_request itself and reports false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(req); err != nil {
		logger.WarnContext(ctx, "unreadable request body", "error", err, "request_id", requestID)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return req, true
}

// PrepareRequest runs Normalize then Validate on whichever of the two req implements.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	v, ok := req.(Validatable)
	if !ok {
		return nil
	}
	return v.Validate()
}

// DecodeAndPrepare is the entry point for badge handlers:
//
//	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
//	if !ok {
//		return
//	}
//
// A rejected body has already been answered. Validation failures keep their
// domain code and reason; anything else is reported as validation_error.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req, ok := DecodeJSON[T](w, r, logger, ctx, requestID)
	if !ok {
		return nil, false
	}
	err := PrepareRequest(req)
	if err == nil {
		return req, true
	}
	logger.WarnContext(ctx, "request rejected", "error", err, "request_id", requestID, "reason", dErrors.ReasonOf(err))
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		err = dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	}
	WriteError(w, err)
	return nil, false
}
