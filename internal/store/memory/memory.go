// Package memory provides an in-memory store.Store with the same
// semantics as the MySQL implementation: conditional single-use token
// claims, ledger uniqueness on (user, research, kind) and all-or-nothing
// transactions. It backs the service tests; a single mutex held for the
// whole transaction gives the serializability the database provides in
// production.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/researchportal/completion-ledger/internal/model"
	"github.com/researchportal/completion-ledger/internal/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.Mutex

	// Now supplies timestamps for inserted rows; tests may replace it.
	Now func() time.Time

	nextID      uint64
	users       map[uint64]model.User
	research    map[uint64]model.Research
	members     map[string]string // "user:group" -> role
	tokens      map[uint64]*model.VerifyToken
	tokenDigest map[string]uint64 // digest -> token id
	completions []model.Completion
	compKeys    map[string]bool // "user:research:kind"
	badges      map[string]bool // "user:code"
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		Now:         func() time.Time { return time.Now().UTC() },
		users:       make(map[uint64]model.User),
		research:    make(map[uint64]model.Research),
		members:     make(map[string]string),
		tokens:      make(map[uint64]*model.VerifyToken),
		tokenDigest: make(map[string]uint64),
		compKeys:    make(map[string]bool),
		badges:      make(map[string]bool),
	}
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

func memberKey(userID, groupID uint64) string { return fmt.Sprintf("%d:%d", userID, groupID) }

func compKey(userID, researchID uint64, kind string) string {
	return fmt.Sprintf("%d:%d:%s", userID, researchID, kind)
}

func badgeKey(userID uint64, code string) string { return fmt.Sprintf("%d:%s", userID, code) }

// ----- seeding helpers (test setup) -----

// AddUser creates a user and returns its id.
func (s *Store) AddUser(email, name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.users[id] = model.User{ID: id, Email: email, Name: name, CreatedAt: s.Now()}
	return id
}

// AddGroupResearch creates a study owned by the given group id.
func (s *Store) AddGroupResearch(groupID uint64, title string, approved, hidden bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.research[id] = model.Research{
		ID: id, GroupID: groupID, Title: title,
		IsApproved: approved, IsHidden: hidden, CreatedAt: s.Now(),
	}
	return id
}

// SetMember records the user's role in a group.
func (s *Store) SetMember(userID, groupID uint64, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[memberKey(userID, groupID)] = role
}

// SeedCompletion inserts a ledger row with an explicit timestamp,
// bypassing the transaction path. Test setup only.
func (s *Store) SeedCompletion(userID, researchID uint64, kind string, points int, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions = append(s.completions, model.Completion{
		ID: s.id(), UserID: userID, ResearchID: researchID,
		Kind: kind, PointsAwarded: points, CreatedAt: createdAt,
	})
	s.compKeys[compKey(userID, researchID, kind)] = true
}

// TokenDigests returns every stored digest for the study, in insertion
// order. Test inspection only.
func (s *Store) TokenDigests(researchID uint64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint64, 0, len(s.tokens))
	for id, t := range s.tokens {
		if t.ResearchID == researchID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.tokens[id].TokenHash)
	}
	return out
}

// TokenByID returns a copy of the token row. Test inspection only.
func (s *Store) TokenByID(id uint64) (model.VerifyToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return model.VerifyToken{}, false
	}
	return *t, true
}

// ----- store.Store -----

// InTx serializes transactions under one mutex and applies fn with an
// undo journal: when fn fails every mutation it made is reverted, which
// mirrors the database rollback that returns a claimed token to the pool.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &memTx{s: s}
	if err := fn(t); err != nil {
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		return err
	}
	return nil
}

func (s *Store) ResearchByID(ctx context.Context, id uint64) (*model.Research, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.researchByIDLocked(id)
}

func (s *Store) researchByIDLocked(id uint64) (*model.Research, error) {
	r, ok := s.research[id]
	if !ok {
		return nil, store.ErrResearchNotFound
	}
	cp := r
	return &cp, nil
}

func (s *Store) MemberRole(ctx context.Context, userID, groupID uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[memberKey(userID, groupID)], nil
}

func (s *Store) TotalsForUser(ctx context.Context, userID uint64) (store.Totals, error) {
	return s.totalsSince(userID, time.Time{})
}

func (s *Store) TotalsForUserSince(ctx context.Context, userID uint64, since time.Time) (store.Totals, error) {
	return s.totalsSince(userID, since)
}

func (s *Store) totalsSince(userID uint64, since time.Time) (store.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t store.Totals
	for _, c := range s.completions {
		if c.UserID != userID || c.CreatedAt.Before(since) {
			continue
		}
		t.Points += c.PointsAwarded
		t.Completions++
	}
	return t, nil
}

func (s *Store) CompletionStats(ctx context.Context, userID uint64) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	hasVerified := false
	for _, c := range s.completions {
		if c.UserID != userID {
			continue
		}
		total++
		if c.Kind == model.KindVerified {
			hasVerified = true
		}
	}
	return total, hasVerified, nil
}

func (s *Store) UpsertBadge(ctx context.Context, userID uint64, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := badgeKey(userID, code)
	if s.badges[key] {
		return false, nil
	}
	s.badges[key] = true
	return true, nil
}

// ranked aggregates and orders the window slice exactly like the SQL
// RANK() query: points desc, completions desc, user id asc.
func (s *Store) ranked(since time.Time) []store.LeaderboardRow {
	agg := make(map[uint64]*store.LeaderboardRow)
	for _, c := range s.completions {
		if c.CreatedAt.Before(since) {
			continue
		}
		row, ok := agg[c.UserID]
		if !ok {
			row = &store.LeaderboardRow{UserID: c.UserID, Name: s.users[c.UserID].Name}
			agg[c.UserID] = row
		}
		row.Points += c.PointsAwarded
		row.Completions++
	}
	rows := make([]store.LeaderboardRow, 0, len(agg))
	for _, r := range agg {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		if rows[i].Completions != rows[j].Completions {
			return rows[i].Completions > rows[j].Completions
		}
		return rows[i].UserID < rows[j].UserID
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func (s *Store) Leaderboard(ctx context.Context, since time.Time, limit, offset int) ([]store.LeaderboardRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.ranked(since)
	if offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (s *Store) LeaderboardTotal(ctx context.Context, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ranked(since)), nil
}

func (s *Store) LeaderboardRank(ctx context.Context, since time.Time, userID uint64) (*store.LeaderboardRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.ranked(since) {
		if r.UserID == userID {
			cp := r
			return &cp, nil
		}
	}
	return nil, nil
}

// ----- store.Tx -----

type memTx struct {
	s    *Store
	undo []func()
}

func (t *memTx) ResearchByID(ctx context.Context, id uint64) (*model.Research, error) {
	return t.s.researchByIDLocked(id)
}

func (t *memTx) MemberRole(ctx context.Context, userID, groupID uint64) (string, error) {
	return t.s.members[memberKey(userID, groupID)], nil
}

func (t *memTx) InsertTokenBatch(ctx context.Context, researchID uint64, digests []string, expiresAt *time.Time) error {
	for _, d := range digests {
		id := t.s.id()
		tok := &model.VerifyToken{
			ID: id, ResearchID: researchID, TokenHash: d,
			ExpiresAt: expiresAt, CreatedAt: t.s.Now(),
		}
		t.s.tokens[id] = tok
		t.s.tokenDigest[d] = id
		digest := d
		t.undo = append(t.undo, func() {
			delete(t.s.tokens, id)
			delete(t.s.tokenDigest, digest)
		})
	}
	return nil
}

func (t *memTx) TokenByDigest(ctx context.Context, digest string) (*model.VerifyToken, error) {
	id, ok := t.s.tokenDigest[digest]
	if !ok {
		return nil, store.ErrTokenNotFound
	}
	cp := *t.s.tokens[id]
	return &cp, nil
}

func (t *memTx) ClaimToken(ctx context.Context, tokenID, userID uint64, now time.Time) error {
	tok, ok := t.s.tokens[tokenID]
	if !ok {
		return store.ErrTokenNotFound
	}
	if tok.UsedAt != nil {
		return store.ErrTokenUsed
	}
	used := now.UTC()
	uid := userID
	tok.UsedAt = &used
	tok.UsedByUserID = &uid
	t.undo = append(t.undo, func() {
		tok.UsedAt = nil
		tok.UsedByUserID = nil
	})
	return nil
}

func (t *memTx) InsertCompletion(ctx context.Context, c *model.Completion) error {
	key := compKey(c.UserID, c.ResearchID, c.Kind)
	if t.s.compKeys[key] {
		return store.ErrAlreadyCompleted
	}
	c.ID = t.s.id()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = t.s.Now()
	}
	t.s.completions = append(t.s.completions, *c)
	t.s.compKeys[key] = true
	t.undo = append(t.undo, func() {
		t.s.completions = t.s.completions[:len(t.s.completions)-1]
		delete(t.s.compKeys, key)
	})
	return nil
}
