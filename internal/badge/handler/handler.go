package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"badgeworks/internal/badge/models"
	id "badgeworks/pkg/domain"
	"badgeworks/pkg/platform/httputil"
	"badgeworks/pkg/platform/privacy"
	"badgeworks/pkg/requestcontext"
)

// Service defines the badge operations exposed over HTTP.
type Service interface {
	Issue(ctx context.Context, req models.BadgeRequest) (*models.IssueResult, error)
	Lookup(ctx context.Context, subject id.SubjectID) (*models.BadgeRecord, error)
	Share(ctx context.Context, req models.ShareRequest) (*models.Confirmation, error)
}

// Handler handles badge endpoints.
type Handler struct {
	badges Service
	logger *slog.Logger
}

// New creates a new badge Handler.
func New(badges Service, logger *slog.Logger) *Handler {
	return &Handler{badges: badges, logger: logger}
}

// Register registers the badge routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/badges", h.HandleIssue)
	r.Get("/badges/subjects/{subjectID}", h.HandleLookup)
	r.Post("/badges/share", h.HandleShare)
}

// HandleIssue runs the issuance pipeline for one submission.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.badges.Issue(ctx, req.toModel())
	if err != nil {
		h.logger.InfoContext(ctx, "badge not issued",
			"request_id", requestID,
			"email", privacy.MaskEmail(req.Email),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toIssueResponse(result))
}

// HandleLookup returns the issued badge for a subject id.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.badges.Lookup(ctx, subject)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toBadgeResponse(rec))
}

// HandleShare publishes an issued badge to LinkedIn and reports the result.
func (h *Handler) HandleShare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ShareRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	shareReq, err := req.toModel()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	conf, err := h.badges.Share(ctx, shareReq)
	if err != nil {
		h.logger.WarnContext(ctx, "badge share failed",
			"request_id", requestID,
			"badge_id", req.BadgeID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &ShareResponse{
		BadgeID: shareReq.BadgeID.String(),
		ShareID: conf.ShareID,
		Status:  conf.StatusCode,
	})
}
