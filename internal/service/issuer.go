package service

import (
	"context"
	"time"

	"github.com/researchportal/completion-ledger/internal/model"
	"github.com/researchportal/completion-ledger/internal/store"
	"github.com/researchportal/completion-ledger/internal/token"
)

const (
	maxBatchSize  = 500
	maxExpiryDays = 365
)

// Issuer mints single-use verification tokens for a study. Only the
// hash of each token is stored; plaintexts are returned exactly once.
type Issuer struct {
	store  store.Store
	secret string

	// Now is replaceable in tests.
	Now func() time.Time
}

func NewIssuer(s store.Store, secret string) *Issuer {
	return &Issuer{store: s, secret: secret, Now: time.Now}
}

// IssueResult carries the one-time plaintexts back to the caller.
type IssueResult struct {
	Tokens    []string
	ExpiresAt *time.Time
}

// IssueTokens generates count tokens for the study, persisting digests
// in a single batch. The caller must hold the ADMIN role in the study's
// owning group. expiresInDays is optional; nil means the tokens never
// expire.
func (i *Issuer) IssueTokens(ctx context.Context, callerID, researchID uint64, count int, expiresInDays *int) (*IssueResult, error) {
	if count < 1 || count > maxBatchSize {
		return nil, ErrInvalidCount
	}
	var expiresAt *time.Time
	if expiresInDays != nil {
		d := *expiresInDays
		if d < 1 || d > maxExpiryDays {
			return nil, ErrInvalidExpiresInDays
		}
		t := i.Now().UTC().Add(time.Duration(d) * 24 * time.Hour)
		expiresAt = &t
	}

	plaintexts := make([]string, 0, count)
	digests := make([]string, 0, count)
	for n := 0; n < count; n++ {
		pair, err := token.NewPair(i.secret)
		if err != nil {
			return nil, err
		}
		plaintexts = append(plaintexts, pair.Plaintext)
		digests = append(digests, pair.Digest)
	}

	err := i.store.InTx(ctx, func(tx store.Tx) error {
		research, err := tx.ResearchByID(ctx, researchID)
		if err != nil {
			return err
		}
		role, err := tx.MemberRole(ctx, callerID, research.GroupID)
		if err != nil {
			return err
		}
		if role != model.RoleAdmin {
			return ErrForbidden
		}
		return tx.InsertTokenBatch(ctx, researchID, digests, expiresAt)
	})
	if err != nil {
		return nil, err
	}
	return &IssueResult{Tokens: plaintexts, ExpiresAt: expiresAt}, nil
}
