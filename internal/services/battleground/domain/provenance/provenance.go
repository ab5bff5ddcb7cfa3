// Package provenance decides whether an asset belongs to the collection a
// battleground admits and whether a holder is on its allow list.
package provenance

import (
	"strconv"

	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
	"github.com/louisbranch/battleground/internal/services/battleground/domain/merkle"
)

const (
	// MaxSymbolLength bounds the collection symbol in bytes.
	MaxSymbolLength = 10
	// MaxVerifiedCreators bounds the creator list of a collection.
	MaxVerifiedCreators = 5
)

// Creator is one creator entry of an asset's registry metadata.
type Creator struct {
	Address  battleground.PublicKey
	Verified bool
}

// Metadata is the registry record describing an asset.
type Metadata struct {
	// Asset is the asset the record is bound to.
	Asset    battleground.PublicKey
	Symbol   string
	Creators []Creator
}

// VerifyCollection checks that asset belongs to the collection described by
// info. With an allow-list root the asset must be proven a leaf; otherwise
// the registry metadata must be bound to the asset, carry the symbol and
// list one of the collection's creators as verified.
func VerifyCollection(info battleground.CollectionInfo, asset battleground.PublicKey, meta *Metadata, proof []merkle.Hash) error {
	if info.AllowListRoot != nil {
		if proof == nil || !merkle.Verify(proof, *info.AllowListRoot, merkle.LeafHash(asset[:])) {
			return collectionFailed("asset not in collection allow list")
		}
		return nil
	}

	if meta == nil {
		return collectionFailed("asset metadata missing")
	}
	if meta.Asset != asset {
		return collectionFailed("metadata bound to another asset")
	}
	if meta.Symbol != info.Symbol {
		return collectionFailed("collection symbol mismatch")
	}
	for _, creator := range meta.Creators {
		if !creator.Verified {
			continue
		}
		for _, accepted := range info.VerifiedCreators {
			if creator.Address == accepted {
				return nil
			}
		}
	}
	return collectionFailed("no verified creator of the collection")
}

// VerifyHolder checks the holder allow list. A nil root disables the check;
// otherwise a proof is mandatory and must verify. A nil proof is a missing
// proof; an empty non-nil proof is valid for a single-member list.
func VerifyHolder(root *merkle.Hash, holder battleground.PublicKey, proof []merkle.Hash) error {
	if root == nil {
		return nil
	}
	if proof == nil || !merkle.Verify(proof, *root, merkle.LeafHash(holder[:])) {
		return apperrors.New(apperrors.CodeHolderNotAllowListed, "holder not in allow list")
	}
	return nil
}

// ValidateCollectionInfo checks a collection descriptor at creation time.
func ValidateCollectionInfo(info battleground.CollectionInfo) error {
	if info.Symbol == "" || len(info.Symbol) > MaxSymbolLength {
		return apperrors.WithMetadata(apperrors.CodeCollectionSymbolInvalid, "collection symbol length out of range", map[string]string{
			"Length": strconv.Itoa(len(info.Symbol)),
		})
	}

	if info.AllowListRoot != nil {
		if len(info.VerifiedCreators) != 0 {
			return apperrors.New(apperrors.CodeVerifiedCreatorsInvalid, "collection sets both creators and allow-list root")
		}
		return nil
	}

	if len(info.VerifiedCreators) == 0 || len(info.VerifiedCreators) > MaxVerifiedCreators {
		return apperrors.WithMetadata(apperrors.CodeVerifiedCreatorsInvalid, "verified creator count out of range", map[string]string{
			"Count": strconv.Itoa(len(info.VerifiedCreators)),
		})
	}
	seen := make(map[battleground.PublicKey]struct{}, len(info.VerifiedCreators))
	for _, creator := range info.VerifiedCreators {
		if creator.IsZero() {
			return apperrors.New(apperrors.CodeVerifiedCreatorsInvalid, "verified creator is empty")
		}
		if _, dup := seen[creator]; dup {
			return apperrors.New(apperrors.CodeVerifiedCreatorsInvalid, "verified creator listed twice")
		}
		seen[creator] = struct{}{}
	}
	return nil
}

func collectionFailed(reason string) error {
	return apperrors.WithMetadata(apperrors.CodeCollectionVerificationFailed, reason, map[string]string{
		"Reason": reason,
	})
}
