package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"didledger/internal/auditlog/models"
	"didledger/internal/auditlog/store"
	"didledger/internal/ledger"
	id "didledger/pkg/domain"
	dErrors "didledger/pkg/domain-errors"
)

const (
	didRegistry    id.Identity = "0x00000000000000000000000000000000000000d1"
	statusRegistry id.Identity = "0x00000000000000000000000000000000000000c5"
	foreign        id.Identity = "0x00000000000000000000000000000000000000ff"
	addr1          id.Identity = "0x0000000000000000000000000000000000000001"
)

type recordingPublisher struct {
	mu      sync.Mutex
	entries []models.Entry
}

func (p *recordingPublisher) Publish(_ context.Context, entry models.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return nil
}

type ServiceSuite struct {
	suite.Suite
	store     *store.InMemoryStore
	ledger    *ledger.Memory
	publisher *recordingPublisher
	service   *Service
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.ledger = ledger.NewMemory()
	s.publisher = &recordingPublisher{}
	svc, err := New(s.store, s.ledger, didRegistry, statusRegistry, WithPublisher(s.publisher))
	s.Require().NoError(err)
	s.service = svc
	s.ctx = context.Background()
}

func (s *ServiceSuite) count() uint64 {
	n, err := s.service.EntryCount(s.ctx)
	s.Require().NoError(err)
	return n
}

func (s *ServiceSuite) TestNew() {
	s.Run("requires both sources", func() {
		_, err := New(s.store, s.ledger, didRegistry, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
	s.Run("requires distinct sources", func() {
		_, err := New(s.store, s.ledger, didRegistry, didRegistry)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
	s.Run("exposes sources", func() {
		d, c := s.service.Sources()
		s.Equal(didRegistry, d)
		s.Equal(statusRegistry, c)
	})
}

func (s *ServiceSuite) TestRecordEventSequencesAreGapless() {
	sources := []id.Identity{didRegistry, statusRegistry, statusRegistry, didRegistry}
	for i, source := range sources {
		seq, err := s.service.RecordEvent(s.ctx, models.EventDIDRegistered, "did:ethr:0x123", addr1, source)
		s.Require().NoError(err)
		s.Equal(uint64(i), seq)
	}
	s.Equal(uint64(len(sources)), s.count())

	first, err := s.service.GetEntry(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(models.GenesisHash, first.PrevHash)
	second, err := s.service.GetEntry(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(first.Hash, second.PrevHash)
	s.Equal(statusRegistry, second.Source)
	s.True(second.Timestamp.After(first.Timestamp))
}

func (s *ServiceSuite) TestRecordEventRejectsForeignSource() {
	_, err := s.service.RecordEvent(s.ctx, models.EventDIDRegistered, "did:ethr:0x123", addr1, didRegistry)
	s.Require().NoError(err)

	_, err = s.service.RecordEvent(s.ctx, models.EventDIDRegistered, "did:ethr:0x456", addr1, foreign)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedSource))
	s.Equal(uint64(1), s.count(), "rejected source does not advance the sequence")

	seq, err := s.service.RecordEvent(s.ctx, models.EventDIDRevoked, "did:ethr:0x123", addr1, didRegistry)
	s.Require().NoError(err)
	s.Equal(uint64(1), seq)
}

func (s *ServiceSuite) TestRecordEventValidation() {
	_, err := s.service.RecordEvent(s.ctx, "", "did:ethr:0x123", addr1, didRegistry)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.service.RecordEvent(s.ctx, models.EventDIDRegistered, " ", addr1, didRegistry)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Zero(s.count())
}

func (s *ServiceSuite) TestRecordEventRollsBackWithEnclosingTransaction() {
	boom := errors.New("registry write failed")
	err := s.ledger.RunInTx(s.ctx, func(txCtx context.Context) error {
		if _, err := s.service.RecordEvent(txCtx, models.EventDIDRegistered, "did:ethr:0x123", addr1, didRegistry); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)
	s.Zero(s.count())
	s.Empty(s.publisher.entries, "nothing is published for a rolled back entry")

	seq, err := s.service.RecordEvent(s.ctx, models.EventDIDRegistered, "did:ethr:0x123", addr1, didRegistry)
	s.Require().NoError(err)
	s.Zero(seq)
}

func (s *ServiceSuite) TestPublishesAfterCommit() {
	for range 3 {
		_, err := s.service.RecordEvent(s.ctx, models.EventCredentialStatusIssued, "cred-1", addr1, statusRegistry)
		s.Require().NoError(err)
	}
	s.Require().Len(s.publisher.entries, 3)
	for i, e := range s.publisher.entries {
		s.Equal(uint64(i), e.Sequence)
	}
}

func (s *ServiceSuite) TestGetEntryNotFound() {
	_, err := s.service.GetEntry(s.ctx, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestConcurrentRecordEvent() {
	const writers = 20
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			source := didRegistry
			if i%2 == 0 {
				source = statusRegistry
			}
			_, err := s.service.RecordEvent(s.ctx, models.EventDIDRegistered, "did:ethr:0x123", addr1, source)
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	s.Equal(uint64(writers), s.count())
	result, err := s.service.Verify(s.ctx)
	s.Require().NoError(err)
	s.True(result.Valid)
	s.Equal(uint64(writers), result.Checked)
}
