package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/provenance"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func key(b byte) battleground.PublicKey {
	return battleground.PublicKey{b, 0x77, b}
}

// openTestStore connects to BATTLEGROUND_TEST_POSTGRES_DSN and empties every
// table. Tests sharing the database must not run in parallel.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("BATTLEGROUND_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BATTLEGROUND_TEST_POSTGRES_DSN not set")
	}
	store, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	if err := store.db.Exec("TRUNCATE game_config, battlegrounds, participants, token_accounts, asset_metadata, asset_creators, outbox").Error; err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return store
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected dsn error")
	}
}

func setup(t *testing.T, participantsCap uint32, players int) (*Store, *admission.Service, battleground.Battleground) {
	t.Helper()
	store := openTestStore(t)
	svc, err := admission.NewService(store, admission.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()
	admin := key(1)
	if _, _, err := svc.InitGameConfig(ctx, battleground.GameConfig{Admin: admin, ProtocolFeeBps: 250, Treasury: key(2)}); err != nil {
		t.Fatalf("init: %v", err)
	}
	bg, err := svc.CreateBattleground(ctx, admission.CreateBattlegroundRequest{
		Creator:         key(3),
		Collection:      battleground.CollectionInfo{Symbol: "HERO", VerifiedCreators: []battleground.PublicKey{key(4)}},
		StartTime:       testNow.Add(time.Hour),
		ParticipantsCap: participantsCap,
		FeeAsset:        key(5),
		EntryFee:        1000,
		CreatorFeeBps:   500,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < players; i++ {
		player, asset := key(byte(20+i)), key(byte(60+i))
		if err := svc.Deposit(ctx, admin, player, key(5), 5000); err != nil {
			t.Fatalf("deposit: %v", err)
		}
		if err := svc.Deposit(ctx, admin, player, asset, 1); err != nil {
			t.Fatalf("deposit asset: %v", err)
		}
		if err := svc.RegisterAsset(ctx, admin, provenance.Metadata{
			Asset:    asset,
			Symbol:   "HERO",
			Creators: []provenance.Creator{{Address: key(4), Verified: true}},
		}); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return store, svc, bg
}

func TestJoinWorkedExample(t *testing.T) {
	store, svc, bg := setup(t, 2, 1)
	ctx := context.Background()

	result, err := svc.Join(ctx, admission.JoinRequest{BattlegroundID: bg.ID, Player: key(20), Asset: key(60), Attack: 30, Defense: 40})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.Fees.Pot != 925 || result.Participant.HealthPoints != 1200 {
		t.Fatalf("unexpected result: %+v", result)
	}
	for _, tc := range []struct {
		owner battleground.PublicKey
		want  uint64
	}{
		{key(20), 4000},
		{bg.Authority, 925},
		{key(2), 25},
		{key(3), 50},
	} {
		got, err := store.Balance(ctx, tc.owner, key(5))
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if got != tc.want {
			t.Errorf("balance(%s) = %d, want %d", tc.owner, got, tc.want)
		}
	}

	_, err = svc.Join(ctx, admission.JoinRequest{BattlegroundID: bg.ID, Player: key(20), Asset: key(60), Attack: 30, Defense: 40})
	if !apperrors.IsCode(err, apperrors.CodeParticipantAlreadyJoined) {
		t.Fatalf("expected %s, got %v", apperrors.CodeParticipantAlreadyJoined, err)
	}

	pending, err := store.PendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if err := store.MarkPublished(ctx, pending[0].ID, testNow); err != nil {
		t.Fatalf("mark published: %v", err)
	}
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	const players = 6
	store, svc, bg := setup(t, 2, players)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		full     int
	)
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Join(context.Background(), admission.JoinRequest{
				BattlegroundID: bg.ID,
				Player:         key(byte(20 + i)),
				Asset:          key(byte(60 + i)),
				Attack:         30,
				Defense:        40,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case apperrors.IsCode(err, apperrors.CodeBattlegroundFull):
				full++
			default:
				t.Errorf("join %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if admitted != 2 || full != players-2 {
		t.Fatalf("admitted=%d full=%d", admitted, full)
	}
	got, err := store.GetBattleground(context.Background(), bg.ID)
	if err != nil {
		t.Fatalf("get battleground: %v", err)
	}
	if got.ParticipantCount != 2 {
		t.Fatalf("participant count = %d, want 2", got.ParticipantCount)
	}
}
