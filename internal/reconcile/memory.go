package reconcile

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// MemoryStore is an in-process Store. It backs dry-run imports and tests.
// Transactions are serialised; a transaction works on a private copy that
// replaces the committed state on Commit.
type MemoryStore struct {
	// sem is a one-slot semaphore held for the lifetime of an open
	// transaction and briefly by the direct accessors.
	sem        chan struct{}
	bets       map[uuid.UUID]*domain.Bet
	failCommit error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sem:  make(chan struct{}, 1),
		bets: map[uuid.UUID]*domain.Bet{},
	}
}

func (s *MemoryStore) lock()   { s.sem <- struct{}{} }
func (s *MemoryStore) unlock() { <-s.sem }

// Seed stores copies of bets directly, outside any transaction.
func (s *MemoryStore) Seed(bets ...*domain.Bet) {
	s.lock()
	defer s.unlock()
	for _, b := range bets {
		c := *b
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		s.bets[c.ID] = &c
	}
}

// FailNextCommit makes the next Commit return err and discard its writes.
func (s *MemoryStore) FailNextCommit(err error) {
	s.lock()
	s.failCommit = err
	s.unlock()
}

// All returns copies of every committed record ordered by placement time.
func (s *MemoryStore) All() []*domain.Bet {
	s.lock()
	defer s.unlock()
	out := make([]*domain.Bet, 0, len(s.bets))
	for _, b := range s.bets {
		c := *b
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TimePlaced.Equal(out[j].TimePlaced) {
			return out[i].TimePlaced.Before(out[j].TimePlaced)
		}
		return out[i].OriginalID < out[j].OriginalID
	})
	return out
}

// Begin opens a transaction. It waits while another one is open, until ctx
// is done.
func (s *MemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &memTx{store: s, work: clone(s.bets)}, nil
}

func clone(in map[uuid.UUID]*domain.Bet) map[uuid.UUID]*domain.Bet {
	out := make(map[uuid.UUID]*domain.Bet, len(in))
	for id, b := range in {
		c := *b
		out[id] = &c
	}
	return out
}

var errTxDone = errors.New("transaction already closed")

// undo restores one record to its state before a write; prev nil means the
// record did not exist.
type undo struct {
	id   uuid.UUID
	prev *domain.Bet
}

type memTx struct {
	store      *MemoryStore
	work       map[uuid.UUID]*domain.Bet
	savepoints [][]undo
	done       bool
}

func (t *memTx) record(id uuid.UUID) {
	if len(t.savepoints) == 0 {
		return
	}
	top := len(t.savepoints) - 1
	t.savepoints[top] = append(t.savepoints[top], undo{id: id, prev: t.work[id]})
}

func (t *memTx) FindBySourceID(_ context.Context, src domain.Source, id string) (*domain.Bet, error) {
	if t.done {
		return nil, errTxDone
	}
	for _, b := range t.work {
		if b.Source == src && b.OriginalID == id {
			c := *b
			return &c, nil
		}
	}
	return nil, domain.ErrBetNotFound
}

func (t *memTx) FindByDescription(_ context.Context, src domain.Source, desc string, from, to time.Time) ([]*domain.Bet, error) {
	if t.done {
		return nil, errTxDone
	}
	var out []*domain.Bet
	for _, b := range t.work {
		if b.Source == src && b.Description == desc && !b.TimePlaced.Before(from) && b.TimePlaced.Before(to) {
			c := *b
			out = append(out, &c)
		}
	}
	return out, nil
}

func (t *memTx) SourcesForSportsbook(_ context.Context, book string) ([]domain.Source, error) {
	if t.done {
		return nil, errTxDone
	}
	seen := map[domain.Source]bool{}
	var out []domain.Source
	for _, b := range t.work {
		if b.Sportsbook == book && !seen[b.Source] {
			seen[b.Source] = true
			out = append(out, b.Source)
		}
	}
	return out, nil
}

func (t *memTx) Insert(_ context.Context, b *domain.Bet) error {
	if t.done {
		return errTxDone
	}
	if _, ok := t.work[b.ID]; ok {
		return errors.New("duplicate id")
	}
	t.record(b.ID)
	c := *b
	t.work[b.ID] = &c
	return nil
}

func (t *memTx) Update(_ context.Context, b *domain.Bet) error {
	if t.done {
		return errTxDone
	}
	if _, ok := t.work[b.ID]; !ok {
		return domain.ErrBetNotFound
	}
	t.record(b.ID)
	c := *b
	t.work[b.ID] = &c
	return nil
}

func (t *memTx) Savepoint(context.Context) error {
	if t.done {
		return errTxDone
	}
	t.savepoints = append(t.savepoints, nil)
	return nil
}

func (t *memTx) RollbackToSavepoint(context.Context) error {
	if len(t.savepoints) == 0 {
		return errors.New("no savepoint")
	}
	top := t.savepoints[len(t.savepoints)-1]
	for i := len(top) - 1; i >= 0; i-- {
		if top[i].prev == nil {
			delete(t.work, top[i].id)
		} else {
			t.work[top[i].id] = top[i].prev
		}
	}
	t.savepoints = t.savepoints[:len(t.savepoints)-1]
	return nil
}

func (t *memTx) ReleaseSavepoint(context.Context) error {
	if len(t.savepoints) == 0 {
		return errors.New("no savepoint")
	}
	top := t.savepoints[len(t.savepoints)-1]
	t.savepoints = t.savepoints[:len(t.savepoints)-1]
	if n := len(t.savepoints); n > 0 {
		t.savepoints[n-1] = append(t.savepoints[n-1], top...)
	}
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	defer t.store.unlock()
	if err := t.store.failCommit; err != nil {
		t.store.failCommit = nil
		return err
	}
	t.store.bets = t.work
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.unlock()
	return nil
}
