package admission

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/provenance"
)

type participantKey struct {
	battlegroundID uint64
	asset          battleground.PublicKey
}

type balanceKey struct {
	owner battleground.PublicKey
	asset battleground.PublicKey
}

type memState struct {
	config        *battleground.GameConfig
	battlegrounds map[uint64]battleground.Battleground
	participants  map[participantKey]battleground.Participant
	balances      map[balanceKey]uint64
	metadata      map[battleground.PublicKey]provenance.Metadata
	outbox        []OutboxEvent
}

func newMemState() memState {
	return memState{
		battlegrounds: map[uint64]battleground.Battleground{},
		participants:  map[participantKey]battleground.Participant{},
		balances:      map[balanceKey]uint64{},
		metadata:      map[battleground.PublicKey]provenance.Metadata{},
	}
}

func (s memState) clone() memState {
	out := newMemState()
	if s.config != nil {
		cfg := *s.config
		out.config = &cfg
	}
	for k, v := range s.battlegrounds {
		out.battlegrounds[k] = v
	}
	for k, v := range s.participants {
		out.participants[k] = v
	}
	for k, v := range s.balances {
		out.balances[k] = v
	}
	for k, v := range s.metadata {
		out.metadata[k] = v
	}
	out.outbox = append([]OutboxEvent(nil), s.outbox...)
	return out
}

// fakeStore keeps state in memory and discards a transaction's working copy
// when fn fails, mirroring a database rollback.
type fakeStore struct {
	mu      sync.Mutex
	state   memState
	txCount int
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: newMemState()}
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++
	working := s.state.clone()
	if err := fn(ctx, &fakeTx{state: &working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

func (s *fakeStore) snapshot() memState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *fakeStore) GetGameConfig(ctx context.Context) (battleground.GameConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&fakeTx{state: &s.state}).GetGameConfig(ctx)
}

func (s *fakeStore) GetBattleground(ctx context.Context, id uint64) (battleground.Battleground, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&fakeTx{state: &s.state}).GetBattleground(ctx, id)
}

func (s *fakeStore) GetParticipant(_ context.Context, battlegroundID uint64, asset battleground.PublicKey) (battleground.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.participants[participantKey{battlegroundID, asset}]
	if !ok {
		return battleground.Participant{}, NotFoundError("participant", asset.String())
	}
	return p, nil
}

func (s *fakeStore) ListParticipants(_ context.Context, query ParticipantQuery) ([]battleground.Participant, error) {
	if !query.Condition.IsEmpty() {
		return nil, errors.New("fake store does not evaluate filters")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []battleground.Participant
	for key, p := range s.state.participants {
		if key.battlegroundID != query.BattlegroundID {
			continue
		}
		if query.AfterSeq > 0 {
			if !query.Descending && p.JoinOrder <= query.AfterSeq {
				continue
			}
			if query.Descending && p.JoinOrder >= query.AfterSeq {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if query.Descending {
			return out[i].JoinOrder > out[j].JoinOrder
		}
		return out[i].JoinOrder < out[j].JoinOrder
	})
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

type fakeTx struct {
	state *memState
}

func (t *fakeTx) GetGameConfig(context.Context) (battleground.GameConfig, error) {
	if t.state.config == nil {
		return battleground.GameConfig{}, NotFoundError("game config", "singleton")
	}
	return *t.state.config, nil
}

func (t *fakeTx) InsertGameConfig(_ context.Context, cfg battleground.GameConfig) (bool, error) {
	if t.state.config != nil {
		return false, nil
	}
	t.state.config = &cfg
	return true, nil
}

func (t *fakeTx) NextBattlegroundID(context.Context) (uint64, error) {
	if t.state.config == nil {
		return 0, NotFoundError("game config", "singleton")
	}
	t.state.config.BattlegroundCount++
	return t.state.config.BattlegroundCount, nil
}

func (t *fakeTx) InsertBattleground(_ context.Context, b battleground.Battleground) error {
	if _, ok := t.state.battlegrounds[b.ID]; ok {
		return errors.New("battleground exists")
	}
	t.state.battlegrounds[b.ID] = b
	return nil
}

func (t *fakeTx) GetBattleground(_ context.Context, id uint64) (battleground.Battleground, error) {
	b, ok := t.state.battlegrounds[id]
	if !ok {
		return battleground.Battleground{}, NotFoundError("battleground", strconv.FormatUint(id, 10))
	}
	return b, nil
}

func (t *fakeTx) IncrementParticipantCount(_ context.Context, id uint64, now time.Time) error {
	b, ok := t.state.battlegrounds[id]
	if !ok {
		return NotFoundError("battleground", strconv.FormatUint(id, 10))
	}
	if !b.HasCapacity() {
		return FullError(b.ParticipantsCap)
	}
	if !b.Status.AcceptsParticipants() {
		return WrongStatusError(b.Status)
	}
	b.ParticipantCount++
	b.UpdatedAt = now
	t.state.battlegrounds[id] = b
	return nil
}

func (t *fakeTx) UpdateStatus(_ context.Context, id uint64, from, to battleground.Status, now time.Time) error {
	b, ok := t.state.battlegrounds[id]
	if !ok {
		return NotFoundError("battleground", strconv.FormatUint(id, 10))
	}
	if b.Status != from || !battleground.CanTransition(from, to) {
		return InvalidTransitionError(b.Status, to)
	}
	b.Status = to
	b.UpdatedAt = now
	t.state.battlegrounds[id] = b
	return nil
}

func (t *fakeTx) ListDueBattlegrounds(_ context.Context, now time.Time) ([]uint64, error) {
	var ids []uint64
	for id, b := range t.state.battlegrounds {
		if b.Status == battleground.StatusPreparing && !b.StartTime.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (t *fakeTx) InsertParticipant(_ context.Context, p battleground.Participant) error {
	key := participantKey{p.BattlegroundID, p.Asset}
	if _, ok := t.state.participants[key]; ok {
		return AlreadyJoinedError(p.BattlegroundID, p.Asset)
	}
	t.state.participants[key] = p
	return nil
}

func (t *fakeTx) AppendOutbox(_ context.Context, event OutboxEvent) error {
	t.state.outbox = append(t.state.outbox, event)
	return nil
}

func (t *fakeTx) Ledger() Ledger { return t }

func (t *fakeTx) Registry() MetadataRegistry { return t }

func (t *fakeTx) Balance(_ context.Context, owner, asset battleground.PublicKey) (uint64, error) {
	return t.state.balances[balanceKey{owner, asset}], nil
}

func (t *fakeTx) Transfer(_ context.Context, from, to, asset battleground.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	held := t.state.balances[balanceKey{from, asset}]
	if held < amount {
		return InsufficientFundsError(held, amount)
	}
	t.state.balances[balanceKey{from, asset}] = held - amount
	t.state.balances[balanceKey{to, asset}] += amount
	return nil
}

func (t *fakeTx) Mint(_ context.Context, owner, asset battleground.PublicKey, amount uint64) error {
	held := t.state.balances[balanceKey{owner, asset}]
	if held+amount < held {
		return errors.New("balance overflow")
	}
	t.state.balances[balanceKey{owner, asset}] = held + amount
	return nil
}

func (t *fakeTx) PutMetadata(_ context.Context, meta provenance.Metadata) error {
	meta.Creators = append([]provenance.Creator(nil), meta.Creators...)
	t.state.metadata[meta.Asset] = meta
	return nil
}

func (t *fakeTx) GetMetadata(_ context.Context, asset battleground.PublicKey) (*provenance.Metadata, error) {
	meta, ok := t.state.metadata[asset]
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
}

func (n *countingNotifier) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}
