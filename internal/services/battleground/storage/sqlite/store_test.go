package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
	"github.com/louisbranch/battleground/internal/services/battleground/admission"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/merkle"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/provenance"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func key(b byte) battleground.PublicKey {
	return battleground.PublicKey{b, 0x5a, b}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "battleground.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

type env struct {
	store    *Store
	svc      *admission.Service
	admin    battleground.PublicKey
	creator  battleground.PublicKey
	verified battleground.PublicKey
	feeAsset battleground.PublicKey
	bg       battleground.Battleground
}

func newEnv(t *testing.T, participantsCap uint32) *env {
	t.Helper()
	e := &env{
		store:    openTempStore(t),
		admin:    key(1),
		creator:  key(3),
		verified: key(4),
		feeAsset: key(5),
	}
	svc, err := admission.NewService(e.store, admission.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	e.svc = svc
	ctx := context.Background()
	if _, _, err := svc.InitGameConfig(ctx, battleground.GameConfig{Admin: e.admin, ProtocolFeeBps: 250, Treasury: key(2)}); err != nil {
		t.Fatalf("init game config: %v", err)
	}
	e.bg, err = svc.CreateBattleground(ctx, admission.CreateBattlegroundRequest{
		Creator: e.creator,
		Collection: battleground.CollectionInfo{
			Symbol:           "HERO",
			VerifiedCreators: []battleground.PublicKey{e.verified},
		},
		StartTime:          testNow.Add(time.Hour),
		ActionPointsPerDay: 10,
		ParticipantsCap:    participantsCap,
		FeeAsset:           e.feeAsset,
		EntryFee:           1000,
		CreatorFeeBps:      500,
	})
	if err != nil {
		t.Fatalf("create battleground: %v", err)
	}
	return e
}

// player funds a player holding one registered asset.
func (e *env) player(t *testing.T, player, asset battleground.PublicKey) {
	t.Helper()
	ctx := context.Background()
	if err := e.svc.Deposit(ctx, e.admin, player, e.feeAsset, 5000); err != nil {
		t.Fatalf("deposit fee: %v", err)
	}
	if err := e.svc.Deposit(ctx, e.admin, player, asset, 1); err != nil {
		t.Fatalf("deposit asset: %v", err)
	}
	if err := e.svc.RegisterAsset(ctx, e.admin, provenance.Metadata{
		Asset:    asset,
		Symbol:   "HERO",
		Creators: []provenance.Creator{{Address: e.verified, Verified: true}},
	}); err != nil {
		t.Fatalf("register asset: %v", err)
	}
}

func (e *env) join(player, asset battleground.PublicKey, attack, defense uint32) (admission.JoinResult, error) {
	return e.svc.Join(context.Background(), admission.JoinRequest{
		BattlegroundID: e.bg.ID,
		Player:         player,
		Asset:          asset,
		Attack:         attack,
		Defense:        defense,
	})
}

func (e *env) balance(t *testing.T, owner, asset battleground.PublicKey) uint64 {
	t.Helper()
	got, err := e.store.Balance(context.Background(), owner, asset)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return got
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battleground.db")
	for i := 0; i < 2; i++ {
		store, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := store.Ping(context.Background()); err != nil {
			t.Fatalf("ping: %v", err)
		}
		_ = store.Close()
	}
}

func TestBattlegroundRoundTrip(t *testing.T) {
	e := newEnv(t, 3)
	got, err := e.store.GetBattleground(context.Background(), e.bg.ID)
	if err != nil {
		t.Fatalf("get battleground: %v", err)
	}
	if got.Address != e.bg.Address || got.Authority != e.bg.Authority {
		t.Fatal("derived identities did not round trip")
	}
	if got.Collection.Symbol != "HERO" || len(got.Collection.VerifiedCreators) != 1 || got.Collection.VerifiedCreators[0] != e.verified {
		t.Fatalf("collection = %+v", got.Collection)
	}
	if got.Collection.AllowListRoot != nil || got.HolderAllowListRoot != nil {
		t.Fatal("expected nil roots")
	}
	if !got.StartTime.Equal(e.bg.StartTime) || got.EntryFee != 1000 || got.CreatorFeeBps != 500 {
		t.Fatalf("unexpected battleground: %+v", got)
	}

	_, err = e.store.GetBattleground(context.Background(), 404)
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected %s, got %v", apperrors.CodeNotFound, err)
	}
}

func TestBattlegroundRootsRoundTrip(t *testing.T) {
	e := newEnv(t, 3)
	collectionRoot := merkle.LeafHash([]byte("collection"))
	holderRoot := merkle.LeafHash([]byte("holders"))
	created, err := e.svc.CreateBattleground(context.Background(), admission.CreateBattlegroundRequest{
		Creator:             e.creator,
		Collection:          battleground.CollectionInfo{Symbol: "HERO", AllowListRoot: &collectionRoot},
		HolderAllowListRoot: &holderRoot,
		StartTime:           testNow,
		ParticipantsCap:     2,
		FeeAsset:            e.feeAsset,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := e.store.GetBattleground(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get battleground: %v", err)
	}
	if got.Collection.AllowListRoot == nil || *got.Collection.AllowListRoot != collectionRoot {
		t.Fatal("collection root did not round trip")
	}
	if got.HolderAllowListRoot == nil || *got.HolderAllowListRoot != holderRoot {
		t.Fatal("holder root did not round trip")
	}
	if len(got.Collection.VerifiedCreators) != 0 {
		t.Fatalf("expected no creators, got %v", got.Collection.VerifiedCreators)
	}
}

func TestJoinWorkedExample(t *testing.T) {
	e := newEnv(t, 3)
	player, asset := key(10), key(11)
	e.player(t, player, asset)

	result, err := e.join(player, asset, 30, 40)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.Fees.Protocol != 25 || result.Fees.Creator != 50 || result.Fees.Pot != 925 {
		t.Fatalf("fees = %+v", result.Fees)
	}
	if got := e.balance(t, player, e.feeAsset); got != 4000 {
		t.Fatalf("player balance = %d, want 4000", got)
	}
	if got := e.balance(t, e.bg.Authority, e.feeAsset); got != 925 {
		t.Fatalf("pot = %d, want 925", got)
	}
	if got := e.balance(t, key(2), e.feeAsset); got != 25 {
		t.Fatalf("treasury = %d, want 25", got)
	}
	if got := e.balance(t, e.creator, e.feeAsset); got != 50 {
		t.Fatalf("creator = %d, want 50", got)
	}

	p, err := e.store.GetParticipant(context.Background(), e.bg.ID, asset)
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if p.Attack != 130 || p.Defense != 90 || p.HealthPoints != 1200 || !p.Alive || p.Owner != player {
		t.Fatalf("unexpected participant: %+v", p)
	}
	if !p.JoinedAt.Equal(testNow) {
		t.Fatalf("joined at = %s, want %s", p.JoinedAt, testNow)
	}

	bg, err := e.store.GetBattleground(context.Background(), e.bg.ID)
	if err != nil {
		t.Fatalf("get battleground: %v", err)
	}
	if bg.ParticipantCount != 1 {
		t.Fatalf("participant count = %d, want 1", bg.ParticipantCount)
	}
}

func TestJoinRollsBackOnInsufficientFunds(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()
	player, asset := key(12), key(13)
	if err := e.svc.Deposit(ctx, e.admin, player, e.feeAsset, 990); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := e.svc.Deposit(ctx, e.admin, player, asset, 1); err != nil {
		t.Fatalf("deposit asset: %v", err)
	}
	if err := e.svc.RegisterAsset(ctx, e.admin, provenance.Metadata{
		Asset:    asset,
		Symbol:   "HERO",
		Creators: []provenance.Creator{{Address: e.verified, Verified: true}},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := e.join(player, asset, 30, 40)
	if !apperrors.IsCode(err, apperrors.CodeInsufficientFunds) {
		t.Fatalf("expected %s, got %v", apperrors.CodeInsufficientFunds, err)
	}
	if got := e.balance(t, player, e.feeAsset); got != 990 {
		t.Fatalf("player balance = %d, want 990", got)
	}
	if got := e.balance(t, e.bg.Authority, e.feeAsset); got != 0 {
		t.Fatalf("pot = %d, want 0", got)
	}
	if _, err := e.store.GetParticipant(ctx, e.bg.ID, asset); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected no participant, got %v", err)
	}
	pending, err := e.store.PendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("pending outbox: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty outbox, got %d", len(pending))
	}
}

func TestJoinAllocatesOnce(t *testing.T) {
	e := newEnv(t, 3)
	player, asset := key(14), key(15)
	e.player(t, player, asset)
	if _, err := e.join(player, asset, 30, 40); err != nil {
		t.Fatalf("join: %v", err)
	}
	_, err := e.join(player, asset, 30, 40)
	if !apperrors.IsCode(err, apperrors.CodeParticipantAlreadyJoined) {
		t.Fatalf("expected %s, got %v", apperrors.CodeParticipantAlreadyJoined, err)
	}
	if got := e.balance(t, player, e.feeAsset); got != 4000 {
		t.Fatalf("player charged twice, balance = %d", got)
	}
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	const players = 8
	e := newEnv(t, 3)
	for i := 0; i < players; i++ {
		e.player(t, key(byte(20+i)), key(byte(40+i)))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		full     int
		other    []error
	)
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.join(key(byte(20+i)), key(byte(40+i)), 30, 40)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case apperrors.IsCode(err, apperrors.CodeBattlegroundFull):
				full++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if admitted != 3 || full != players-3 {
		t.Fatalf("admitted=%d full=%d, want 3 and %d", admitted, full, players-3)
	}
	bg, err := e.store.GetBattleground(context.Background(), e.bg.ID)
	if err != nil {
		t.Fatalf("get battleground: %v", err)
	}
	if bg.ParticipantCount != 3 {
		t.Fatalf("participant count = %d, want 3", bg.ParticipantCount)
	}
	if got := e.balance(t, e.bg.Authority, e.feeAsset); got != 3*925 {
		t.Fatalf("pot = %d, want %d", got, 3*925)
	}
}

func TestListParticipantsFilterAndPaging(t *testing.T) {
	e := newEnv(t, 5)
	stats := [][2]uint32{{30, 40}, {10, 10}, {50, 0}, {0, 100}}
	for i, s := range stats {
		player, asset := key(byte(60+i)), key(byte(80+i))
		e.player(t, player, asset)
		if _, err := e.join(player, asset, s[0], s[1]); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}
	ctx := context.Background()

	tests := []struct {
		filter string
		want   []uint32
	}{
		{filter: "", want: []uint32{1, 2, 3, 4}},
		{filter: "attack > 120", want: []uint32{1, 3}},
		{filter: "defense >= 90 AND attack < 150", want: []uint32{1, 4}},
		{filter: fmt.Sprintf("owner = %q", key(61).String()), want: []uint32{2}},
		{filter: "health_points = 1500", want: []uint32{4}},
	}
	for _, tt := range tests {
		page, err := e.svc.ListParticipants(ctx, admission.ListParticipantsRequest{BattlegroundID: e.bg.ID, Filter: tt.filter})
		if err != nil {
			t.Fatalf("list %q: %v", tt.filter, err)
		}
		var got []uint32
		for _, p := range page.Participants {
			got = append(got, p.JoinOrder)
		}
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("filter %q = %v, want %v", tt.filter, got, tt.want)
		}
	}

	page, err := e.svc.ListParticipants(ctx, admission.ListParticipantsRequest{BattlegroundID: e.bg.ID, OrderBy: "join_order desc", PageSize: 3})
	if err != nil {
		t.Fatalf("list desc: %v", err)
	}
	if len(page.Participants) != 3 || page.Participants[0].JoinOrder != 4 || page.NextPageToken == "" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	page, err = e.svc.ListParticipants(ctx, admission.ListParticipantsRequest{
		BattlegroundID: e.bg.ID,
		OrderBy:        "join_order desc",
		PageSize:       3,
		PageToken:      page.NextPageToken,
	})
	if err != nil {
		t.Fatalf("list desc page 2: %v", err)
	}
	if len(page.Participants) != 1 || page.Participants[0].JoinOrder != 1 || page.NextPageToken != "" {
		t.Fatalf("unexpected second page: %+v", page)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()

	started, err := e.svc.StartDue(ctx, testNow.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("start due: %v", err)
	}
	if len(started) != 1 || started[0] != e.bg.ID {
		t.Fatalf("started = %v", started)
	}

	player, asset := key(90), key(91)
	e.player(t, player, asset)
	if _, err := e.join(player, asset, 30, 40); !apperrors.IsCode(err, apperrors.CodeWrongBattlegroundStatus) {
		t.Fatalf("expected %s, got %v", apperrors.CodeWrongBattlegroundStatus, err)
	}

	finished, err := e.svc.Finish(ctx, e.admin, e.bg.ID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if finished.Status != battleground.StatusFinished {
		t.Fatalf("status = %s", finished.Status)
	}

	err = e.store.WithTx(ctx, func(ctx context.Context, tx admission.Tx) error {
		return tx.UpdateStatus(ctx, e.bg.ID, battleground.StatusPreparing, battleground.StatusOngoing, testNow)
	})
	if !apperrors.IsCode(err, apperrors.CodeInvalidStatusTransition) {
		t.Fatalf("expected %s, got %v", apperrors.CodeInvalidStatusTransition, err)
	}
}

func TestGameConfigInsertIfAbsent(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	if _, err := store.GetGameConfig(ctx); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected %s, got %v", apperrors.CodeNotFound, err)
	}

	var created []bool
	for _, admin := range []battleground.PublicKey{key(1), key(9)} {
		err := store.WithTx(ctx, func(ctx context.Context, tx admission.Tx) error {
			ok, err := tx.InsertGameConfig(ctx, battleground.GameConfig{Admin: admin, Treasury: key(2), ProtocolFeeBps: 100})
			created = append(created, ok)
			return err
		})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if !created[0] || created[1] {
		t.Fatalf("created = %v, want [true false]", created)
	}
	cfg, err := store.GetGameConfig(ctx)
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.Admin != key(1) {
		t.Fatalf("admin = %s, want first insert", cfg.Admin)
	}
}

func TestOutbox(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()
	player, asset := key(16), key(17)
	e.player(t, player, asset)
	result, err := e.join(player, asset, 30, 40)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	pending, err := e.store.PendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != result.Event.ID || pending[0].Kind != admission.EventKindJoined {
		t.Fatalf("unexpected pending: %+v", pending)
	}

	publishedAt := testNow.Add(time.Minute)
	if err := e.store.MarkPublished(ctx, result.Event.ID, publishedAt); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if err := e.store.MarkPublished(ctx, result.Event.ID, publishedAt.Add(time.Hour)); err != nil {
		t.Fatalf("mark published again: %v", err)
	}
	event, err := e.store.GetOutboxEvent(ctx, result.Event.ID)
	if err != nil {
		t.Fatalf("get outbox event: %v", err)
	}
	if event.PublishedAt == nil || !event.PublishedAt.Equal(publishedAt) {
		t.Fatalf("published at = %v, want %s", event.PublishedAt, publishedAt)
	}
	pending, err = e.store.PendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending events, got %d", len(pending))
	}
	if err := e.store.MarkPublished(ctx, "missing", publishedAt); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected %s, got %v", apperrors.CodeNotFound, err)
	}
}

func TestRegistryReplacesCreators(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()
	asset := key(30)
	put := func(meta provenance.Metadata) {
		t.Helper()
		if err := store.WithTx(ctx, func(ctx context.Context, tx admission.Tx) error {
			return tx.Registry().PutMetadata(ctx, meta)
		}); err != nil {
			t.Fatalf("put metadata: %v", err)
		}
	}
	put(provenance.Metadata{Asset: asset, Symbol: "A", Creators: []provenance.Creator{{Address: key(1), Verified: true}, {Address: key(2)}}})
	put(provenance.Metadata{Asset: asset, Symbol: "B", Creators: []provenance.Creator{{Address: key(3), Verified: true}}})

	var got *provenance.Metadata
	err := store.WithTx(ctx, func(ctx context.Context, tx admission.Tx) error {
		var err error
		got, err = tx.Registry().GetMetadata(ctx, asset)
		return err
	})
	if err != nil {
		t.Fatalf("get metadata: %v", err)
	}
	if got == nil || got.Symbol != "B" || len(got.Creators) != 1 || got.Creators[0].Address != key(3) || !got.Creators[0].Verified {
		t.Fatalf("unexpected metadata: %+v", got)
	}

	err = store.WithTx(ctx, func(ctx context.Context, tx admission.Tx) error {
		var err error
		got, err = tx.Registry().GetMetadata(ctx, key(31))
		return err
	})
	if err != nil || got != nil {
		t.Fatalf("missing metadata = %+v, %v", got, err)
	}
}
