package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"badgeworks/internal/badge/models"
	id "badgeworks/pkg/domain"
	"badgeworks/pkg/platform/circuit"
	"badgeworks/pkg/platform/sentinel"
	"badgeworks/pkg/testutil"
)

type LinkedInSuite struct {
	suite.Suite
	server   *httptest.Server
	handler  http.HandlerFunc
	calls    atomic.Int32
	lastBody sharePayload
	lastAuth string
}

func TestLinkedInSuite(t *testing.T) {
	suite.Run(t, new(LinkedInSuite))
}

func (s *LinkedInSuite) SetupTest() {
	s.calls.Store(0)
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RestLi-Id", "urn:li:share:1")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"urn:li:share:42"}`)
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		s.lastAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&s.lastBody)
		s.handler(w, r)
	}))
}

func (s *LinkedInSuite) TearDownTest() {
	s.server.Close()
}

func (s *LinkedInSuite) client(opts ...Option) *LinkedIn {
	return NewLinkedIn(Config{
		APIURL:       s.server.URL,
		Retries:      2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 2 * time.Millisecond,
	}, opts...)
}

func validShare() models.Share {
	rec := testutil.NewBadgeRecordBuilder().WithID(testutil.TestIDs.BadgeID1).Build()
	return models.Share{
		BadgeID:        rec.ID,
		AccessToken:    "token-abc",
		MemberID:       "member-7",
		KeyDescription: rec.KeyDescription,
		ImageURL:       rec.ImageURL,
		DocumentURL:    rec.DocumentURL,
	}
}

func (s *LinkedInSuite) TestPublishSendsShare() {
	conf, err := s.client().Publish(context.Background(), validShare())
	s.Require().NoError(err)

	s.Equal("urn:li:share:42", conf.ShareID)
	s.Equal(http.StatusCreated, conf.StatusCode)
	s.Equal("Bearer token-abc", s.lastAuth)
	s.Equal("Digital Badge Earned", s.lastBody.Content.Title)
	s.Contains(s.lastBody.Content.Description, testutil.TestIDs.BadgeID1.String())
	s.Contains(s.lastBody.Content.Description, "Intro to CS")
	s.Equal("https://badges.example.test/CS101.pdf", s.lastBody.Content.SubmittedURL)
	s.Equal("https://badges.example.test/CS101.png", s.lastBody.Content.SubmittedImageURL)
	s.Equal("urn:li:person:member-7", s.lastBody.Owner)
	s.Equal("PUBLIC", s.lastBody.Visibility["com.linkedin.ugc.MemberNetworkVisibility"])
}

func (s *LinkedInSuite) TestBadgeBaseURL() {
	c := NewLinkedIn(Config{APIURL: s.server.URL, BadgeBaseURL: "https://badges.example.com/"})
	_, err := c.Publish(context.Background(), validShare())
	s.Require().NoError(err)
	s.Equal("https://badges.example.com/badge/"+testutil.TestIDs.BadgeID1.String(), s.lastBody.Content.SubmittedURL)
}

func (s *LinkedInSuite) TestHeaderIDWhenBodyIsEmpty() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RestLi-Id", "urn:li:share:9")
		w.WriteHeader(http.StatusCreated)
	}
	conf, err := s.client().Publish(context.Background(), validShare())
	s.Require().NoError(err)
	s.Equal("urn:li:share:9", conf.ShareID)
}

func (s *LinkedInSuite) TestClientErrorsAreNotRetried() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"invalid token"}`)
	}
	_, err := s.client().Publish(context.Background(), validShare())

	var rejected *RejectedError
	s.Require().True(errors.As(err, &rejected))
	s.Equal(http.StatusUnauthorized, rejected.StatusCode)
	s.Contains(rejected.Body, "invalid token")
	s.Equal(int32(1), s.calls.Load())
}

func (s *LinkedInSuite) TestServerErrorsAreRetried() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		if s.calls.Load() < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"urn:li:share:3"}`)
	}
	conf, err := s.client().Publish(context.Background(), validShare())
	s.Require().NoError(err)
	s.Equal("urn:li:share:3", conf.ShareID)
	s.Equal(int32(3), s.calls.Load())
}

func (s *LinkedInSuite) TestBreakerOpensOnProviderFailures() {
	s.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	breaker := circuit.New("linkedin", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	c := NewLinkedIn(Config{APIURL: s.server.URL, Retries: 0}, WithBreaker(breaker))

	for range 2 {
		_, err := c.Publish(context.Background(), validShare())
		s.Error(err)
	}
	s.Equal(circuit.StateOpen, breaker.State())

	before := s.calls.Load()
	_, err := c.Publish(context.Background(), validShare())
	s.ErrorIs(err, sentinel.ErrCircuitOpen)
	s.Equal(before, s.calls.Load(), "open circuit must not reach the provider")
}

func (s *LinkedInSuite) TestInvalidShareNeverCallsProvider() {
	cases := map[string]func(*models.Share){
		"no token":  func(sh *models.Share) { sh.AccessToken = " " },
		"no member": func(sh *models.Share) { sh.MemberID = "" },
		"no urls":   func(sh *models.Share) { sh.ImageURL = "" },
		"no badge":  func(sh *models.Share) { sh.BadgeID = id.BadgeID{} },
	}
	for name, mutate := range cases {
		s.Run(name, func() {
			sh := validShare()
			mutate(&sh)
			_, err := s.client().Publish(context.Background(), sh)
			s.ErrorIs(err, ErrInvalidShare)
		})
	}
	s.Zero(s.calls.Load())
}
