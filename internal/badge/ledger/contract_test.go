package ledger_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"badgeworks/internal/badge/ledger"
	"badgeworks/internal/badge/models"
	id "badgeworks/pkg/domain"
	"badgeworks/pkg/platform/sentinel"
	"badgeworks/pkg/testutil"
)

// contractSuite holds the behaviour every Ledger implementation must share.
// Embedders assign ledger and reset its state before each test.
type contractSuite struct {
	suite.Suite
	ledger ledger.Ledger
}

func (s *contractSuite) ctx() context.Context { return context.Background() }

func (s *contractSuite) TestRecordThenFind() {
	rec := testutil.NewBadgeRecordBuilder().Build()

	outcome, err := s.ledger.Record(s.ctx(), rec)
	s.Require().NoError(err)
	s.Equal(models.OutcomeRecorded, outcome)

	bySubject, err := s.ledger.FindBySubject(s.ctx(), rec.SubjectID)
	s.Require().NoError(err)
	s.Equal(rec.ID, bySubject.ID)
	s.Equal("Intro to CS", bySubject.KeyDescription)
	s.True(bySubject.Issued)
	s.WithinDuration(rec.CreatedAt, bySubject.CreatedAt, time.Microsecond)

	byID, err := s.ledger.FindByID(s.ctx(), rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.SubjectID, byID.SubjectID)
	s.Equal(rec.CorrelationToken, byID.CorrelationToken)
	s.Equal(rec.ImageURL, byID.ImageURL)
	s.Equal(rec.DocumentURL, byID.DocumentURL)
}

func (s *contractSuite) TestCheckNotIssued() {
	s.NoError(s.ledger.CheckNotIssued(s.ctx(), 130))

	_, err := s.ledger.Record(s.ctx(), testutil.NewBadgeRecordBuilder().WithSubjectID(130).Build())
	s.Require().NoError(err)

	s.ErrorIs(s.ledger.CheckNotIssued(s.ctx(), 130), sentinel.ErrAlreadyIssued)
	s.NoError(s.ledger.CheckNotIssued(s.ctx(), 131))
}

func (s *contractSuite) TestSecondIssuedRecordIsRejected() {
	first := testutil.NewBadgeRecordBuilder().WithSubjectID(140).Build()
	second := testutil.NewBadgeRecordBuilder().WithSubjectID(140).WithKeyCode("NET200", "Networking").Build()

	outcome, err := s.ledger.Record(s.ctx(), first)
	s.Require().NoError(err)
	s.Equal(models.OutcomeRecorded, outcome)

	outcome, err = s.ledger.Record(s.ctx(), second)
	s.Require().NoError(err)
	s.Equal(models.OutcomeAlreadyIssued, outcome)

	got, err := s.ledger.FindBySubject(s.ctx(), 140)
	s.Require().NoError(err)
	s.Equal(first.ID, got.ID, "the first issuance stays authoritative")

	_, err = s.ledger.FindByID(s.ctx(), second.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *contractSuite) TestUnissuedRowsDoNotBlock() {
	pending := testutil.NewBadgeRecordBuilder().WithSubjectID(145).WithIssued(false).Build()
	outcome, err := s.ledger.Record(s.ctx(), pending)
	s.Require().NoError(err)
	s.Equal(models.OutcomeRecorded, outcome)

	s.NoError(s.ledger.CheckNotIssued(s.ctx(), 145))
	_, err = s.ledger.FindBySubject(s.ctx(), 145)
	s.ErrorIs(err, sentinel.ErrNotFound)

	outcome, err = s.ledger.Record(s.ctx(), testutil.NewBadgeRecordBuilder().WithSubjectID(145).Build())
	s.Require().NoError(err)
	s.Equal(models.OutcomeRecorded, outcome)
}

// TestConcurrentIssuanceForOneSubject verifies exactly one of many
// simultaneous inserts for the same subject wins.
func (s *contractSuite) TestConcurrentIssuanceForOneSubject() {
	const workers = 20
	subject := id.SubjectID(150)

	result := testutil.RunConcurrent(workers, func(int) error {
		outcome, err := s.ledger.Record(s.ctx(), testutil.NewBadgeRecordBuilder().WithSubjectID(subject).Build())
		if err != nil {
			return err
		}
		if outcome == models.OutcomeAlreadyIssued {
			return sentinel.ErrAlreadyIssued
		}
		return nil
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(workers-1), result.AlreadyIssued)
	s.Zero(result.Errors)
}

func (s *contractSuite) TestFindMisses() {
	_, err := s.ledger.FindBySubject(s.ctx(), 999)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.ledger.FindByID(s.ctx(), id.NewBadgeID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
