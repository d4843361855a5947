package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"badgeworks/internal/badge/handler/mocks"
	"badgeworks/internal/badge/models"
	id "badgeworks/pkg/domain"
	dErrors "badgeworks/pkg/domain-errors"
	"badgeworks/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func newTestRouter(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)

	h := New(mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r, mockService
}

func newJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedCode, expectedReason string) {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, expectedCode, resp["error"])
	if expectedReason != "" {
		assert.Equal(t, expectedReason, resp["reason"])
	}
}

func subjectID(v id.SubjectID) *id.SubjectID { return &v }

func issueBodyWith(subject any) map[string]any {
	body := map[string]any{}
	for k, v := range issueBody {
		body[k] = v
	}
	body["subjectId"] = subject
	return body
}

var issueBody = map[string]any{
	"firstName":   "Ada",
	"lastName":    "Lovelace",
	"email":       "ada@example.com",
	"subjectId":   120,
	"keyCode":     "CS101",
	"issuer":      "Analytical Engine Academy",
	"hiddenField": "corr-1",
}

func (s *HandlerSuite) TestHandleIssue() {
	s.T().Run("201 - issues a badge", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		rec := testutil.NewBadgeRecordBuilder().Build()
		mockService.EXPECT().Issue(gomock.Any(), models.BadgeRequest{
			FirstName:        "Ada",
			LastName:         "Lovelace",
			Email:            "ada@example.com",
			SubjectID:        subjectID(120),
			KeyCode:          "CS101",
			Issuer:           "Analytical Engine Academy",
			CorrelationToken: "corr-1",
		}).Return(&models.IssueResult{Record: rec, ShareStatus: models.ShareSkipped}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/badges", issueBody))

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp IssueResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, rec.ID.String(), resp.BadgeID)
		assert.Equal(t, "Intro to CS", resp.KeyDescription)
		assert.Equal(t, rec.ImageURL, resp.ImageURL)
		assert.Equal(t, models.ShareSkipped, resp.Share)
		assert.NotContains(t, w.Body.String(), "ada@example.com")
	})

	s.T().Run("201 - subject id posted as text", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		body := map[string]any{}
		for k, v := range issueBody {
			body[k] = v
		}
		body["subjectId"] = "120"
		mockService.EXPECT().Issue(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req models.BadgeRequest) (*models.IssueResult, error) {
				assert.Equal(t, subjectID(120), req.SubjectID)
				return &models.IssueResult{Record: testutil.NewBadgeRecordBuilder().Build()}, nil
			})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/badges", body))
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	s.T().Run("400 - malformed body", func(t *testing.T) {
		router, _ := newTestRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/badges", bytes.NewBufferString(`{"firstName":`))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assertErrorResponse(t, w, "bad_request", "")
	})

	s.T().Run("400 - fractional subject id", func(t *testing.T) {
		router, _ := newTestRouter(t)
		body := map[string]any{}
		for k, v := range issueBody {
			body[k] = v
		}
		body["subjectId"] = 120.5

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/badges", body))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assertErrorResponse(t, w, "validation_error", models.ReasonSubjectIDOutOfRange)
	})

	s.T().Run("subject id presence reaches the service", func(t *testing.T) {
		cases := []struct {
			name    string
			subject any
			want    *id.SubjectID
		}{
			{name: "null is missing", subject: nil, want: nil},
			{name: "blank text is missing", subject: "", want: nil},
			{name: "zero is present", subject: 0, want: subjectID(0)},
			{name: "zero as text is present", subject: " 0 ", want: subjectID(0)},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				router, mockService := newTestRouter(t)
				mockService.EXPECT().Issue(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ any, req models.BadgeRequest) (*models.IssueResult, error) {
						assert.Equal(t, tc.want, req.SubjectID)
						return nil, models.Reject(models.ReasonMissingField, "rejected")
					})

				w := httptest.NewRecorder()
				router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/badges", issueBodyWith(tc.subject)))
				assert.Equal(t, http.StatusBadRequest, w.Code)
			})
		}
	})

	s.T().Run("400 - non numeric subject id text", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/badges", issueBodyWith("abc")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assertErrorResponse(t, w, "validation_error", models.ReasonSubjectIDOutOfRange)
	})

	s.T().Run("400 - rejection carries the reason", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().Issue(gomock.Any(), gomock.Any()).
			Return(nil, models.Reject(models.ReasonInvalidKeyCode, "unknown key code"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/badges", issueBody))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assertErrorResponse(t, w, "validation_error", models.ReasonInvalidKeyCode)
	})

	s.T().Run("409 - already issued", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(nil, models.AlreadyIssued(120))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/badges", issueBody))

		assert.Equal(t, http.StatusConflict, w.Code)
		assertErrorResponse(t, w, "conflict", models.ReasonAlreadyIssued)
	})

	s.T().Run("503 - storage unavailable hides detail", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().Issue(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "dial tcp 10.0.0.5:5432: connection refused"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/badges", issueBody))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NotContains(t, w.Body.String(), "10.0.0.5")
	})
}

func (s *HandlerSuite) TestHandleLookup() {
	s.T().Run("200 - returns the badge", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		rec := testutil.NewBadgeRecordBuilder().Build()
		mockService.EXPECT().Lookup(gomock.Any(), id.SubjectID(120)).Return(&rec, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/badges/subjects/120", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp BadgeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(120), resp.SubjectID)
		assert.True(t, resp.Issued)
	})

	s.T().Run("400 - non numeric subject id", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/badges/subjects/abc", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	s.T().Run("404 - not issued", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().Lookup(gomock.Any(), id.SubjectID(140)).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "no badge issued for subject 140"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/badges/subjects/140", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assertErrorResponse(t, w, "not_found", "")
	})
}

func (s *HandlerSuite) TestHandleShare() {
	badgeID := testutil.TestIDs.BadgeID1

	s.T().Run("200 - shared", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().Share(gomock.Any(), models.ShareRequest{
			BadgeID:     badgeID,
			AccessToken: "token",
			MemberID:    "abc123",
		}).Return(&models.Confirmation{ShareID: "urn:li:share:9", StatusCode: http.StatusCreated}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/badges/share", map[string]string{
			"badgeId":     badgeID.String(),
			"accessToken": " token ",
			"memberId":    "abc123",
		}))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp ShareResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "urn:li:share:9", resp.ShareID)
		assert.Equal(t, http.StatusCreated, resp.Status)
	})

	s.T().Run("400 - malformed badge id", func(t *testing.T) {
		router, _ := newTestRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/badges/share", map[string]string{
			"badgeId":     "not-a-uuid",
			"accessToken": "token",
			"memberId":    "abc123",
		}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assertErrorResponse(t, w, "bad_request", "")
	})

	s.T().Run("502 - provider failed", func(t *testing.T) {
		router, mockService := newTestRouter(t)
		mockService.EXPECT().Share(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUpstream, "linkedin rejected share: status 500"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newJSONRequest(t, http.MethodPost, "/badges/share", map[string]string{
			"badgeId":     badgeID.String(),
			"accessToken": "token",
			"memberId":    "abc123",
		}))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assertErrorResponse(t, w, "upstream_error", "")
	})
}
