// Package service runs the issuance pipeline:
// validate → describe → pre-check → render → upload → record → share.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"badgeworks/internal/badge/models"
	"badgeworks/internal/badge/publisher"
	"badgeworks/internal/badge/render"
	"badgeworks/internal/platform/metrics"
	"badgeworks/internal/platform/tracer"
	id "badgeworks/pkg/domain"
	dErrors "badgeworks/pkg/domain-errors"
	"badgeworks/pkg/platform/middleware/requesttime"
	"badgeworks/pkg/platform/privacy"
	"badgeworks/pkg/platform/sentinel"
	"badgeworks/pkg/requestcontext"
)

// Validator checks a normalized request.
type Validator interface {
	Validate(req models.BadgeRequest) error
}

// Catalog resolves key codes to descriptions.
type Catalog interface {
	Describe(code id.KeyCode) string
}

// Renderer draws the badge image and document.
type Renderer interface {
	Render(rec models.BadgeRecord) (render.Artifacts, error)
}

// ArtifactStore persists rendered files and returns public URLs.
type ArtifactStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Ledger is the issuance record store.
type Ledger interface {
	CheckNotIssued(ctx context.Context, subject id.SubjectID) error
	Record(ctx context.Context, rec models.BadgeRecord) (models.Outcome, error)
	FindBySubject(ctx context.Context, subject id.SubjectID) (models.BadgeRecord, error)
	FindByID(ctx context.Context, badgeID id.BadgeID) (models.BadgeRecord, error)
}

// Publisher shares an issued badge synchronously.
type Publisher interface {
	Publish(ctx context.Context, share models.Share) (models.Confirmation, error)
}

// ShareDispatcher runs shares in the background after issuance.
type ShareDispatcher interface {
	Submit(ctx context.Context, share models.Share) bool
}

// Pipeline stages, used as the metrics "stage" label.
const (
	stageLedger = "ledger"
	stageRender = "render"
	stageUpload = "upload"
)

// Option configures the service.
type Option func(*Service)

// Service issues badges and shares them.
type Service struct {
	validator  Validator
	catalog    Catalog
	renderer   Renderer
	artifacts  ArtifactStore
	ledger     Ledger
	publisher  Publisher
	dispatcher ShareDispatcher
	tracer     tracer.Tracer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewService creates the issuance service with its required dependencies.
func NewService(validator Validator, catalog Catalog, renderer Renderer, artifacts ArtifactStore, ledger Ledger, opts ...Option) *Service {
	svc := &Service{
		validator: validator,
		catalog:   catalog,
		renderer:  renderer,
		artifacts: artifacts,
		ledger:    ledger,
		tracer:    tracer.NewNoop(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithPublisher enables the synchronous share endpoint.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithDispatcher enables share-on-issue.
func WithDispatcher(d ShareDispatcher) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Issue runs the full pipeline for req. Rejections happen before any render,
// upload, or ledger write. Artifacts may remain in the store when the ledger
// write fails afterwards; they are not deleted.
func (s *Service) Issue(ctx context.Context, req models.BadgeRequest) (result *models.IssueResult, err error) {
	start := time.Now()
	req.Normalize()

	ctx, span := s.tracer.Start(ctx, tracer.SpanIssue,
		tracer.Int64(tracer.AttrSubjectID, int64(req.Subject())),
		tracer.String(tracer.AttrKeyCode, req.KeyCode.String()),
		tracer.String(tracer.AttrEmailHash, tracer.HashEmail(req.Email)),
	)
	defer func() { span.End(err) }()

	if err := s.validator.Validate(req); err != nil {
		reason := dErrors.ReasonOf(err)
		span.AddEvent(tracer.EventRejected, tracer.String(tracer.AttrReason, reason))
		s.metrics.ObserveRejected(reason)
		s.logger.InfoContext(ctx, "badge request rejected",
			"reason", reason,
			"subject_id", req.Subject(),
			"email", privacy.MaskEmail(req.Email),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}

	description := s.catalog.Describe(req.KeyCode)

	// Fast path: skip render and upload for a subject that is already done.
	// Record below stays authoritative for concurrent requests.
	if err := s.checkNotIssued(ctx, req.Subject()); err != nil {
		return nil, err
	}

	rec := models.BadgeRecord{
		ID:               id.NewBadgeID(),
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		SubjectID:        req.Subject(),
		KeyCode:          req.KeyCode,
		KeyDescription:   description,
		Issuer:           req.Issuer,
		CorrelationToken: req.CorrelationToken,
		Issued:           true,
		CreatedAt:        requesttime.Now(ctx),
	}
	span.SetAttributes(tracer.String(tracer.AttrBadgeID, rec.ID.String()))

	artifacts, err := s.render(ctx, rec)
	if err != nil {
		return nil, err
	}

	rec.ImageURL, rec.DocumentURL, err = s.upload(ctx, rec.KeyCode, artifacts)
	if err != nil {
		return nil, err
	}

	if err := s.record(ctx, rec); err != nil {
		return nil, err
	}

	shareStatus := s.queueShare(ctx, req.Share, rec)
	s.metrics.ObserveIssued(time.Since(start))
	s.logger.InfoContext(ctx, "badge issued",
		"badge_id", rec.ID.String(),
		"subject_id", rec.SubjectID,
		"key_code", rec.KeyCode,
		"share", shareStatus,
		"request_id", requestcontext.RequestID(ctx),
	)

	return &models.IssueResult{Record: rec, ShareStatus: shareStatus}, nil
}

func (s *Service) checkNotIssued(ctx context.Context, subject id.SubjectID) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanPreCheck)
	defer func() { span.End(err) }()

	err = s.ledger.CheckNotIssued(ctx, subject)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrAlreadyIssued):
		s.metrics.ObserveAlreadyIssued()
		s.logger.InfoContext(ctx, "badge already issued", "subject_id", subject)
		return models.AlreadyIssued(subject)
	default:
		return s.ledgerFailure(ctx, err)
	}
}

func (s *Service) render(ctx context.Context, rec models.BadgeRecord) (render.Artifacts, error) {
	_, span := s.tracer.Start(ctx, tracer.SpanRender)
	artifacts, err := s.renderer.Render(rec)
	span.End(err)
	if err != nil {
		s.metrics.ObserveFailed(stageRender)
		s.logger.ErrorContext(ctx, "badge rendering failed",
			"error", err,
			"badge_id", rec.ID.String(),
		)
		return render.Artifacts{}, dErrors.Wrap(err, dErrors.CodeInternal, "badge rendering failed")
	}
	return artifacts, nil
}

// upload stores image and document in parallel; both must finish before
// the ledger write.
func (s *Service) upload(ctx context.Context, key id.KeyCode, artifacts render.Artifacts) (imageURL, documentURL string, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		imageURL, err = s.put(gctx, key, artifacts.Image, models.ContentTypePNG)
		return err
	})
	g.Go(func() error {
		var err error
		documentURL, err = s.put(gctx, key, artifacts.Document, models.ContentTypePDF)
		return err
	})
	if err := g.Wait(); err != nil {
		s.metrics.ObserveFailed(stageUpload)
		s.logger.ErrorContext(ctx, "artifact upload failed",
			"error", err,
			"key_code", key,
		)
		return "", "", dErrors.Wrap(err, dErrors.CodeUnavailable, "artifact storage unavailable")
	}
	return imageURL, documentURL, nil
}

func (s *Service) put(ctx context.Context, key id.KeyCode, body []byte, contentType string) (url string, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanUpload,
		tracer.String(tracer.AttrContentType, contentType),
		tracer.Int64(tracer.AttrBytes, int64(len(body))),
	)
	defer func() { span.End(err) }()

	start := time.Now()
	url, err = s.artifacts.Put(ctx, key.String(), body, contentType)
	s.metrics.ObserveUpload(contentType, time.Since(start))
	return url, err
}

func (s *Service) record(ctx context.Context, rec models.BadgeRecord) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRecord)
	defer func() { span.End(err) }()

	outcome, err := s.ledger.Record(ctx, rec)
	if err != nil {
		return s.ledgerFailure(ctx, err)
	}
	span.SetAttributes(tracer.String(tracer.AttrOutcome, outcome.String()))
	if outcome == models.OutcomeAlreadyIssued {
		s.metrics.ObserveAlreadyIssued()
		s.logger.InfoContext(ctx, "concurrent issuance lost the race",
			"subject_id", rec.SubjectID,
			"badge_id", rec.ID.String(),
		)
		return models.AlreadyIssued(rec.SubjectID)
	}
	return nil
}

func (s *Service) ledgerFailure(ctx context.Context, err error) error {
	s.metrics.ObserveFailed(stageLedger)
	s.logger.ErrorContext(ctx, "ledger operation failed", "error", err)
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "ledger operation failed")
}

func (s *Service) queueShare(ctx context.Context, opts *models.ShareOptions, rec models.BadgeRecord) string {
	if opts == nil || opts.AccessToken == "" || opts.MemberID == "" || s.dispatcher == nil {
		return models.ShareSkipped
	}
	share := shareFor(rec, opts.AccessToken, opts.MemberID)
	if !s.dispatcher.Submit(ctx, share) {
		s.metrics.ObserveShare(metrics.ShareDropped)
		s.logger.WarnContext(ctx, "share not queued", "badge_id", rec.ID.String())
		return models.ShareSkipped
	}
	s.metrics.ObserveShare(metrics.ShareQueued)
	return models.ShareQueued
}

// Lookup returns the issued badge for subject.
func (s *Service) Lookup(ctx context.Context, subject id.SubjectID) (*models.BadgeRecord, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanFindBadge, tracer.Int64(tracer.AttrSubjectID, int64(subject)))
	rec, err := s.ledger.FindBySubject(ctx, subject)
	span.End(err)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no badge issued for subject "+subject.String())
		}
		return nil, s.ledgerFailure(ctx, err)
	}
	return &rec, nil
}

// Share posts an issued badge to LinkedIn and waits for the result. A
// failure here never affects the badge itself.
func (s *Service) Share(ctx context.Context, req models.ShareRequest) (conf *models.Confirmation, err error) {
	if s.publisher == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "sharing is not configured")
	}
	if req.BadgeID.IsNil() {
		return nil, dErrors.NewWithReason(dErrors.CodeValidation, models.ReasonMissingField, "badgeId is required")
	}
	if req.AccessToken == "" || req.MemberID == "" {
		return nil, dErrors.NewWithReason(dErrors.CodeValidation, models.ReasonMissingField, "accessToken and memberId are required")
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanShare, tracer.String(tracer.AttrBadgeID, req.BadgeID.String()))
	defer func() { span.End(err) }()

	rec, err := s.ledger.FindByID(ctx, req.BadgeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "badge not found")
		}
		return nil, s.ledgerFailure(ctx, err)
	}
	if !rec.Issued {
		return nil, dErrors.New(dErrors.CodeNotFound, "badge not found")
	}

	result, err := s.publisher.Publish(ctx, shareFor(rec, req.AccessToken, req.MemberID))
	if err != nil {
		s.metrics.ObserveShare(metrics.ShareFailed)
		s.logger.WarnContext(ctx, "badge share failed",
			"badge_id", rec.ID.String(),
			"error", err,
		)
		if errors.Is(err, publisher.ErrInvalidShare) {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "share request is incomplete")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "sharing on LinkedIn failed")
	}
	s.metrics.ObserveShare(metrics.ShareSucceeded)
	return &result, nil
}

func shareFor(rec models.BadgeRecord, token, memberID string) models.Share {
	return models.Share{
		BadgeID:        rec.ID,
		AccessToken:    token,
		MemberID:       memberID,
		KeyDescription: rec.KeyDescription,
		ImageURL:       rec.ImageURL,
		DocumentURL:    rec.DocumentURL,
	}
}
