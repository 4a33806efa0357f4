package memory

import (
	"context"
	"sort"
	"sync"

	"live-quiz-service/internal/domain"
)

// RankingStore is an in-process app.RankingStore. Each session owns a board with its
// own lock, so sessions never contend with each other.
type RankingStore struct {
	mu     sync.RWMutex
	boards map[string]*board
}

type board struct {
	mu      sync.Mutex
	members map[string]*rankEntry
	awarded map[awardKey]struct{}
	nextSeq uint64
}

type awardKey struct {
	member  string
	awardID string
}

type rankEntry struct {
	member string
	score  int
	seq    uint64 // arrival order, used to break ties
}

func NewRankingStore() *RankingStore {
	return &RankingStore{boards: make(map[string]*board)}
}

func (r *RankingStore) Increment(_ context.Context, sessionID, member string, delta int) (int, error) {
	b := r.board(sessionID, true)
	b.mu.Lock()
	defer b.mu.Unlock()
	entry := b.entryLocked(member)
	entry.score += delta
	return entry.score, nil
}

func (r *RankingStore) Award(_ context.Context, sessionID, member, awardID string, delta int) (int, bool, error) {
	b := r.board(sessionID, true)
	b.mu.Lock()
	defer b.mu.Unlock()
	entry := b.entryLocked(member)
	key := awardKey{member: member, awardID: awardID}
	if _, done := b.awarded[key]; done {
		return entry.score, false, nil
	}
	b.awarded[key] = struct{}{}
	entry.score += delta
	return entry.score, true, nil
}

func (r *RankingStore) DeleteSession(_ context.Context, sessionID string) error {
	r.Forget(sessionID)
	return nil
}

// Forget drops the session's board. It matches the SessionStore expiry hook.
func (r *RankingStore) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.boards, sessionID)
}

func (r *RankingStore) Score(_ context.Context, sessionID, member string) (int, bool, error) {
	b := r.board(sessionID, false)
	if b == nil {
		return 0, false, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.members[member]
	if !ok {
		return 0, false, nil
	}
	return entry.score, true, nil
}

func (r *RankingStore) Rank(_ context.Context, sessionID, member string) (int, bool, error) {
	b := r.board(sessionID, false)
	if b == nil {
		return 0, false, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	target, ok := b.members[member]
	if !ok {
		return 0, false, nil
	}
	rank := 0
	for _, e := range b.members {
		if e != target && ranksAbove(e, target) {
			rank++
		}
	}
	return rank, true, nil
}

func (r *RankingStore) Top(_ context.Context, sessionID string, n int) ([]domain.RankedMember, error) {
	all := r.sorted(sessionID)
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all, nil
}

func (r *RankingStore) All(_ context.Context, sessionID string) ([]domain.RankedMember, error) {
	return r.sorted(sessionID), nil
}

func (r *RankingStore) sorted(sessionID string) []domain.RankedMember {
	b := r.board(sessionID, false)
	if b == nil {
		return []domain.RankedMember{}
	}
	b.mu.Lock()
	entries := make([]rankEntry, 0, len(b.members))
	for _, e := range b.members {
		entries = append(entries, *e)
	}
	b.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return ranksAbove(&entries[i], &entries[j]) })
	out := make([]domain.RankedMember, len(entries))
	for i, e := range entries {
		out[i] = domain.RankedMember{Member: e.member, Score: e.score}
	}
	return out
}

func (r *RankingStore) board(sessionID string, create bool) *board {
	r.mu.RLock()
	b, ok := r.boards[sessionID]
	r.mu.RUnlock()
	if ok || !create {
		return b
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.boards[sessionID]; ok {
		return b
	}
	b = &board{members: make(map[string]*rankEntry), awarded: make(map[awardKey]struct{})}
	r.boards[sessionID] = b
	return b
}

func (b *board) entryLocked(member string) *rankEntry {
	entry, ok := b.members[member]
	if !ok {
		b.nextSeq++
		entry = &rankEntry{member: member, seq: b.nextSeq}
		b.members[member] = entry
	}
	return entry
}

// ranksAbove orders by score descending, then earliest arrival.
func ranksAbove(a, b *rankEntry) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.seq < b.seq
}
