package admission

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/provenance"
)

var fixtureNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func key(b byte) battleground.PublicKey {
	return battleground.PublicKey{b, 0xaa, b}
}

type fixture struct {
	store    *fakeStore
	svc      *Service
	notifier *countingNotifier

	admin    battleground.PublicKey
	treasury battleground.PublicKey
	creator  battleground.PublicKey
	verified battleground.PublicKey
	feeAsset battleground.PublicKey
	player   battleground.PublicKey
	asset    battleground.PublicKey

	bg battleground.Battleground
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newFakeStore(),
		notifier: &countingNotifier{},
		admin:    key(1),
		treasury: key(2),
		creator:  key(3),
		verified: key(4),
		feeAsset: key(5),
		player:   key(6),
		asset:    key(7),
	}
	ids := 0
	svc, err := NewService(f.store,
		WithClock(func() time.Time { return fixtureNow }),
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("evt-%d", ids)
		}),
		WithNotifier(f.notifier),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc

	ctx := context.Background()
	if _, _, err := svc.InitGameConfig(ctx, battleground.GameConfig{
		Admin:          f.admin,
		ProtocolFeeBps: 250,
		Treasury:       f.treasury,
	}); err != nil {
		t.Fatalf("init game config: %v", err)
	}
	f.bg = f.createBattleground(t, 2)
	f.giveAsset(f.player, f.asset)
	f.deposit(f.player, f.feeAsset, 5000)
	return f
}

func (f *fixture) createBattleground(t *testing.T, participantsCap uint32) battleground.Battleground {
	t.Helper()
	bg, err := f.svc.CreateBattleground(context.Background(), CreateBattlegroundRequest{
		Creator: f.creator,
		Collection: battleground.CollectionInfo{
			Symbol:           "HERO",
			VerifiedCreators: []battleground.PublicKey{f.verified},
		},
		StartTime:          fixtureNow.Add(time.Hour),
		ActionPointsPerDay: 10,
		ParticipantsCap:    participantsCap,
		FeeAsset:           f.feeAsset,
		EntryFee:           1000,
		CreatorFeeBps:      500,
	})
	if err != nil {
		t.Fatalf("create battleground: %v", err)
	}
	return bg
}

// giveAsset credits one unit of asset to owner and registers matching
// collection metadata.
func (f *fixture) giveAsset(owner, asset battleground.PublicKey) {
	f.deposit(owner, asset, 1)
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.state.metadata[asset] = provenance.Metadata{
		Asset:    asset,
		Symbol:   "HERO",
		Creators: []provenance.Creator{{Address: f.verified, Verified: true}},
	}
}

func (f *fixture) deposit(owner, asset battleground.PublicKey, amount uint64) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.state.balances[balanceKey{owner, asset}] += amount
}

func (f *fixture) balance(owner, asset battleground.PublicKey) uint64 {
	return f.store.snapshot().balances[balanceKey{owner, asset}]
}

func (f *fixture) setStatus(id uint64, status battleground.Status) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	bg := f.store.state.battlegrounds[id]
	bg.Status = status
	f.store.state.battlegrounds[id] = bg
}

func (f *fixture) joinRequest(asset battleground.PublicKey) JoinRequest {
	return JoinRequest{
		BattlegroundID: f.bg.ID,
		Player:         f.player,
		Asset:          asset,
		Attack:         30,
		Defense:        40,
	}
}
