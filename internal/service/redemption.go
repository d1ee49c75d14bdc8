package service

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/researchportal/completion-ledger/internal/model"
	"github.com/researchportal/completion-ledger/internal/ratelimit"
	"github.com/researchportal/completion-ledger/internal/store"
	"github.com/researchportal/completion-ledger/internal/token"
)

// CompletionEvent is emitted after a verified completion commits.
type CompletionEvent struct {
	CompletionID  uint64    `json:"completion_id"`
	UserID        uint64    `json:"user_id"`
	ResearchID    uint64    `json:"research_id"`
	Kind          string    `json:"kind"`
	PointsAwarded int       `json:"points_awarded"`
	RedeemedAt    time.Time `json:"redeemed_at"`
}

// Publisher delivers completion events to the message broker. A nil
// publisher disables eventing without affecting redemption.
type Publisher interface {
	CompletionVerified(ctx context.Context, ev CompletionEvent) error
}

// Redemption coordinates token redemption: the token claim and the
// ledger append happen in one transaction, so a redemption either
// records a completion and consumes the token, or does neither.
type Redemption struct {
	store     store.Store
	limiter   ratelimit.Limiter
	rlPrefix  string
	secret    string
	badges    *BadgeEvaluator
	publisher Publisher

	verifiedPoints int
	simplePoints   int

	// Now is replaceable in tests.
	Now func() time.Time
}

func NewRedemption(s store.Store, limiter ratelimit.Limiter, rlPrefix, secret string, badges *BadgeEvaluator, pub Publisher, verifiedPoints, simplePoints int) *Redemption {
	return &Redemption{
		store:          s,
		limiter:        limiter,
		rlPrefix:       rlPrefix,
		secret:         secret,
		badges:         badges,
		publisher:      pub,
		verifiedPoints: verifiedPoints,
		simplePoints:   simplePoints,
		Now:            time.Now,
	}
}

// Redeem validates and consumes a single-use token, recording a VERIFIED
// completion for the user. Concurrent attempts on the same token are
// serialized by the conditional claim: exactly one caller wins. If the
// user already completed the study, the whole transaction rolls back and
// the token returns to the pool unconsumed.
func (r *Redemption) Redeem(ctx context.Context, userID, researchID uint64, raw string) (*model.Completion, error) {
	if r.limiter != nil {
		key := ratelimit.Key(r.rlPrefix, strconv.FormatUint(userID, 10), strconv.FormatUint(researchID, 10))
		if dec := r.limiter.Allow(ctx, key); !dec.Allowed {
			return nil, &RateLimitError{Decision: dec}
		}
	}

	normalized := token.Normalize(raw)
	if normalized == "" {
		return nil, ErrTokenRequired
	}
	// Malformed input can never match a stored digest; skip the lookup.
	if !token.ValidFormat(normalized, token.DefaultParts, token.DefaultPartLen) {
		return nil, store.ErrTokenNotFound
	}
	digest := token.Digest(normalized, r.secret)
	now := r.Now().UTC()

	comp := &model.Completion{
		UserID:        userID,
		ResearchID:    researchID,
		Kind:          model.KindVerified,
		PointsAwarded: r.verifiedPoints,
	}
	err := r.store.InTx(ctx, func(tx store.Tx) error {
		tok, err := tx.TokenByDigest(ctx, digest)
		if err != nil {
			return err
		}
		// A valid token for a different study is indistinguishable
		// from an invalid one; do not leak its existence.
		if tok.ResearchID != researchID {
			return store.ErrTokenNotFound
		}
		if tok.Expired(now) {
			return store.ErrTokenExpired
		}
		if err := tx.ClaimToken(ctx, tok.ID, userID, now); err != nil {
			return err
		}
		return tx.InsertCompletion(ctx, comp)
	})
	if err != nil {
		return nil, err
	}

	r.afterCommit(ctx, comp)
	return comp, nil
}

// CompleteSimple records an unverified completion for a visible study.
func (r *Redemption) CompleteSimple(ctx context.Context, userID, researchID uint64) (*model.Completion, error) {
	research, err := r.store.ResearchByID(ctx, researchID)
	if err != nil {
		return nil, err
	}
	if !research.Visible() {
		return nil, ErrResearchNotVisible
	}

	comp := &model.Completion{
		UserID:        userID,
		ResearchID:    researchID,
		Kind:          model.KindSimple,
		PointsAwarded: r.simplePoints,
	}
	err = r.store.InTx(ctx, func(tx store.Tx) error {
		return tx.InsertCompletion(ctx, comp)
	})
	if err != nil {
		return nil, err
	}

	r.afterCommit(ctx, comp)
	return comp, nil
}

// afterCommit runs the side effects that must not affect the committed
// redemption: badge evaluation and event publishing are best-effort.
func (r *Redemption) afterCommit(ctx context.Context, comp *model.Completion) {
	if r.badges != nil {
		if _, err := r.badges.Evaluate(ctx, comp.UserID); err != nil {
			log.Printf("[redeem] badge evaluation failed for user %d: %v", comp.UserID, err)
		}
	}
	if r.publisher != nil && comp.Kind == model.KindVerified {
		ev := CompletionEvent{
			CompletionID:  comp.ID,
			UserID:        comp.UserID,
			ResearchID:    comp.ResearchID,
			Kind:          comp.Kind,
			PointsAwarded: comp.PointsAwarded,
			RedeemedAt:    comp.CreatedAt,
		}
		if err := r.publisher.CompletionVerified(ctx, ev); err != nil {
			log.Printf("[redeem] event publish failed for completion %d: %v", comp.ID, err)
		}
	}
}
