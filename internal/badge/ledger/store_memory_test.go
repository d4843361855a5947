package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"badgeworks/internal/badge/ledger"
	"badgeworks/pkg/testutil"
)

type InMemoryLedgerSuite struct {
	contractSuite
	mem *ledger.InMemoryLedger
}

func TestInMemoryLedgerSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLedgerSuite))
}

func (s *InMemoryLedgerSuite) SetupTest() {
	s.mem = ledger.NewInMemory()
	s.ledger = s.mem
	s.Require().NoError(s.mem.EnsureSchema(s.ctx()))
}

func (s *InMemoryLedgerSuite) TestRejectedInsertAddsNoRow() {
	_, err := s.mem.Record(s.ctx(), testutil.NewBadgeRecordBuilder().Build())
	s.Require().NoError(err)
	_, err = s.mem.Record(s.ctx(), testutil.NewBadgeRecordBuilder().Build())
	s.Require().NoError(err)

	s.Equal(1, s.mem.Len())
}
