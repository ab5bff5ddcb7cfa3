package provenance

import (
	"strings"
	"testing"

	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/merkle"
)

func key(b byte) battleground.PublicKey {
	var k battleground.PublicKey
	k[0] = b
	k[31] = b
	return k
}

func allowList(t *testing.T, members ...battleground.PublicKey) (*merkle.Tree, []merkle.Hash) {
	t.Helper()
	leaves := make([]merkle.Hash, len(members))
	for i, m := range members {
		leaves[i] = merkle.LeafHash(m[:])
	}
	tree, err := merkle.NewTree(leaves)
	if err != nil {
		t.Fatalf("new tree: %v", err)
	}
	return tree, leaves
}

func TestVerifyCollectionCreators(t *testing.T) {
	asset := key(9)
	creator := key(1)
	info := battleground.CollectionInfo{Symbol: "BRAWL", VerifiedCreators: []battleground.PublicKey{key(2), creator}}

	good := &Metadata{
		Asset:    asset,
		Symbol:   "BRAWL",
		Creators: []Creator{{Address: key(7), Verified: true}, {Address: creator, Verified: true}},
	}
	if err := VerifyCollection(info, asset, good, nil); err != nil {
		t.Fatalf("expected verified metadata to pass: %v", err)
	}

	tests := []struct {
		name string
		meta *Metadata
	}{
		{name: "missing metadata", meta: nil},
		{name: "other asset", meta: &Metadata{Asset: key(8), Symbol: "BRAWL", Creators: good.Creators}},
		{name: "symbol mismatch", meta: &Metadata{Asset: asset, Symbol: "BRAWL2", Creators: good.Creators}},
		{name: "creator unverified", meta: &Metadata{Asset: asset, Symbol: "BRAWL", Creators: []Creator{{Address: creator}}}},
		{name: "verified stranger", meta: &Metadata{Asset: asset, Symbol: "BRAWL", Creators: []Creator{{Address: key(7), Verified: true}}}},
		{name: "no creators", meta: &Metadata{Asset: asset, Symbol: "BRAWL"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyCollection(info, asset, tt.meta, nil)
			if !apperrors.IsCode(err, apperrors.CodeCollectionVerificationFailed) {
				t.Fatalf("expected CollectionVerificationFailed, got %v", err)
			}
		})
	}
}

func TestVerifyCollectionAllowList(t *testing.T) {
	members := []battleground.PublicKey{key(1), key(2), key(3)}
	tree, _ := allowList(t, members...)
	root := tree.Root()
	info := battleground.CollectionInfo{Symbol: "BRAWL", AllowListRoot: &root}

	proof, err := tree.Proof(1)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if err := VerifyCollection(info, members[1], nil, proof); err != nil {
		t.Fatalf("expected member to pass: %v", err)
	}
	if err := VerifyCollection(info, key(4), nil, proof); !apperrors.IsCode(err, apperrors.CodeCollectionVerificationFailed) {
		t.Fatalf("expected non-member to fail, got %v", err)
	}
	if err := VerifyCollection(info, members[1], nil, nil); !apperrors.IsCode(err, apperrors.CodeCollectionVerificationFailed) {
		t.Fatalf("expected missing proof to fail, got %v", err)
	}
}

func TestVerifyHolder(t *testing.T) {
	holders := []battleground.PublicKey{key(10), key(11)}
	tree, _ := allowList(t, holders...)
	root := tree.Root()
	proof, err := tree.Proof(0)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}

	if err := VerifyHolder(nil, key(99), nil); err != nil {
		t.Fatalf("expected no root to skip the check: %v", err)
	}
	if err := VerifyHolder(&root, holders[0], proof); err != nil {
		t.Fatalf("expected allow-listed holder to pass: %v", err)
	}
	if err := VerifyHolder(&root, holders[0], nil); !apperrors.IsCode(err, apperrors.CodeHolderNotAllowListed) {
		t.Fatalf("expected missing proof to be rejected, got %v", err)
	}
	if err := VerifyHolder(&root, key(12), proof); !apperrors.IsCode(err, apperrors.CodeHolderNotAllowListed) {
		t.Fatalf("expected stranger to be rejected, got %v", err)
	}
}

func TestValidateCollectionInfo(t *testing.T) {
	root := merkle.LeafHash([]byte("root"))
	tests := []struct {
		name string
		info battleground.CollectionInfo
		code apperrors.Code
	}{
		{name: "creators ok", info: battleground.CollectionInfo{Symbol: "BRAWL", VerifiedCreators: []battleground.PublicKey{key(1)}}},
		{name: "root ok", info: battleground.CollectionInfo{Symbol: "BRAWL", AllowListRoot: &root}},
		{name: "ten byte symbol", info: battleground.CollectionInfo{Symbol: strings.Repeat("S", 10), AllowListRoot: &root}},
		{name: "empty symbol", info: battleground.CollectionInfo{AllowListRoot: &root}, code: apperrors.CodeCollectionSymbolInvalid},
		{name: "long symbol", info: battleground.CollectionInfo{Symbol: strings.Repeat("S", 11), AllowListRoot: &root}, code: apperrors.CodeCollectionSymbolInvalid},
		{name: "neither", info: battleground.CollectionInfo{Symbol: "BRAWL"}, code: apperrors.CodeVerifiedCreatorsInvalid},
		{name: "both", info: battleground.CollectionInfo{Symbol: "BRAWL", AllowListRoot: &root, VerifiedCreators: []battleground.PublicKey{key(1)}}, code: apperrors.CodeVerifiedCreatorsInvalid},
		{name: "too many", info: battleground.CollectionInfo{Symbol: "BRAWL", VerifiedCreators: []battleground.PublicKey{key(1), key(2), key(3), key(4), key(5), key(6)}}, code: apperrors.CodeVerifiedCreatorsInvalid},
		{name: "duplicate", info: battleground.CollectionInfo{Symbol: "BRAWL", VerifiedCreators: []battleground.PublicKey{key(1), key(1)}}, code: apperrors.CodeVerifiedCreatorsInvalid},
		{name: "zero creator", info: battleground.CollectionInfo{Symbol: "BRAWL", VerifiedCreators: []battleground.PublicKey{{}}}, code: apperrors.CodeVerifiedCreatorsInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCollectionInfo(tt.info)
			if tt.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apperrors.IsCode(err, tt.code) {
				t.Fatalf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestVerifyHolderSingleMemberList(t *testing.T) {
	holder := key(20)
	root := merkle.LeafHash(holder[:])
	if err := VerifyHolder(&root, holder, []merkle.Hash{}); err != nil {
		t.Fatalf("expected empty proof to verify a single-member list: %v", err)
	}
	if err := VerifyHolder(&root, holder, nil); !apperrors.IsCode(err, apperrors.CodeHolderNotAllowListed) {
		t.Fatalf("expected missing proof to be rejected, got %v", err)
	}
}
