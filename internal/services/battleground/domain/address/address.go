// Package address derives deterministic record identities from a tag and a
// list of seeds, so every process computes the same address for the same
// battleground, pot authority or participant.
package address

import (
	"crypto/hkdf"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/louisbranch/battleground/internal/services/battleground/domain/battleground"
)

// salt scopes derived addresses to this service.
var salt = []byte("battleground/address/v1")

const (
	TagBattleground = "battleground"
	TagAuthority    = "authority"
	TagParticipant  = "participant"
)

// Derive returns the address for tag and seeds. Seeds are length-prefixed
// before hashing so distinct seed lists never collide by concatenation.
func Derive(tag string, seeds ...[]byte) (battleground.PublicKey, error) {
	var material []byte
	for _, seed := range seeds {
		material = binary.BigEndian.AppendUint32(material, uint32(len(seed)))
		material = append(material, seed...)
	}
	raw, err := hkdf.Key(sha256.New, material, salt, tag, battleground.KeySize)
	if err != nil {
		return battleground.PublicKey{}, fmt.Errorf("derive %s address: %w", tag, err)
	}
	return battleground.KeyFromBytes(raw)
}

// Battleground returns the address of the battleground with the given id.
func Battleground(id uint64) (battleground.PublicKey, error) {
	return Derive(TagBattleground, binary.BigEndian.AppendUint64(nil, id))
}

// Authority returns the pot owner address of a battleground.
func Authority(battlegroundAddr battleground.PublicKey) (battleground.PublicKey, error) {
	return Derive(TagAuthority, battlegroundAddr[:])
}

// Participant returns the participant record address for an asset.
func Participant(battlegroundAddr, asset battleground.PublicKey) (battleground.PublicKey, error) {
	return Derive(TagParticipant, battlegroundAddr[:], asset[:])
}
