package admission

import (
	"context"
	"testing"

	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/provenance"
)

func TestDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := key(90)

	if err := f.svc.Deposit(ctx, f.admin, owner, f.feeAsset, 300); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := f.svc.Deposit(ctx, f.admin, owner, f.feeAsset, 200); err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if got := f.balance(owner, f.feeAsset); got != 500 {
		t.Fatalf("balance = %d, want 500", got)
	}

	err := f.svc.Deposit(ctx, f.player, owner, f.feeAsset, 1)
	if !apperrors.IsCode(err, apperrors.CodeCallerNotAuthorized) {
		t.Fatalf("expected %s, got %v", apperrors.CodeCallerNotAuthorized, err)
	}
	err = f.svc.Deposit(ctx, f.admin, owner, f.feeAsset, 0)
	if !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
		t.Fatalf("expected %s, got %v", apperrors.CodeInvalidArgument, err)
	}
}

func TestRegisterAssetEnablesJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asset := key(91)
	f.deposit(f.player, asset, 1)

	if _, err := f.svc.Join(ctx, f.joinRequest(asset)); !apperrors.IsCode(err, apperrors.CodeCollectionVerificationFailed) {
		t.Fatalf("expected %s before registration, got %v", apperrors.CodeCollectionVerificationFailed, err)
	}

	meta := provenance.Metadata{
		Asset:    asset,
		Symbol:   "HERO",
		Creators: []provenance.Creator{{Address: f.verified, Verified: true}},
	}
	if err := f.svc.RegisterAsset(ctx, f.player, meta); !apperrors.IsCode(err, apperrors.CodeCallerNotAuthorized) {
		t.Fatalf("expected %s, got %v", apperrors.CodeCallerNotAuthorized, err)
	}
	if err := f.svc.RegisterAsset(ctx, f.admin, meta); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.svc.Join(ctx, f.joinRequest(asset)); err != nil {
		t.Fatalf("join after registration: %v", err)
	}
}

func TestRegisterAssetValidation(t *testing.T) {
	f := newFixture(t)
	tests := []provenance.Metadata{
		{Symbol: "HERO"},
		{Asset: key(92)},
		{Asset: key(92), Symbol: "ABCDEFGHIJK"},
	}
	for _, meta := range tests {
		err := f.svc.RegisterAsset(context.Background(), f.admin, meta)
		if !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
			t.Errorf("RegisterAsset(%+v): expected %s, got %v", meta, apperrors.CodeInvalidArgument, err)
		}
	}
}
