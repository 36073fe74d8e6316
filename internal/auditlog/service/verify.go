package service

import (
	"context"
	"fmt"

	"didledger/internal/auditlog/models"
	dErrors "didledger/pkg/domain-errors"
)

const verifyPageSize = 100

// VerifyResult reports the outcome of walking the hash chain.
type VerifyResult struct {
	Valid    bool    `json:"valid"`
	Checked  uint64  `json:"checked"`
	BrokenAt *uint64 `json:"broken_at,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// Verify walks the log from sequence 0 and reports the first entry that
// breaks density, source attribution or the hash chain.
func (s *Service) Verify(ctx context.Context) (*VerifyResult, error) {
	ctx, span := tracer.Start(ctx, "auditlog.Verify")
	defer span.End()

	result := &VerifyResult{Valid: true}
	prevHash := models.GenesisHash
	for {
		page, err := s.ListEntries(ctx, result.Checked, verifyPageSize)
		if err != nil {
			s.fail(span, "verify", err)
			return nil, err
		}
		for _, entry := range page {
			if reason := s.check(entry, result.Checked, prevHash); reason != "" {
				seq := result.Checked
				result.Valid, result.BrokenAt, result.Reason = false, &seq, reason
				s.logger.ErrorContext(ctx, "audit chain broken", "sequence", seq, "reason", reason)
				return result, nil
			}
			prevHash = entry.Hash
			result.Checked++
		}
		if len(page) < verifyPageSize {
			return result, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "audit verification interrupted")
		}
	}
}

func (s *Service) check(entry models.Entry, expected uint64, prevHash string) string {
	switch {
	case entry.Sequence != expected:
		return fmt.Sprintf("sequence gap: expected %d, found %d", expected, entry.Sequence)
	case !s.isSource(entry.Source):
		return "entry from unlinked source"
	case entry.PrevHash != prevHash:
		return "previous hash mismatch"
	case models.ComputeHash(entry) != entry.Hash:
		return "entry hash mismatch"
	}
	return ""
}
