// Package fee splits an entry fee between the protocol treasury, the
// battleground creator and the prize pot.
package fee

import (
	"math/bits"
	"strconv"

	apperrors "github.com/louisbranch/battleground/internal/platform/errors"
)

// Denominator is the basis-point scale.
const Denominator = 10_000

// Split is the three-way distribution of one entry fee.
type Split struct {
	Protocol uint64
	Creator  uint64
	Pot      uint64
}

// Total returns the sum of all shares.
func (s Split) Total() uint64 {
	return s.Protocol + s.Creator + s.Pot
}

// ValidateRates checks both rates and their sum against the denominator.
func ValidateRates(protocolBps, creatorBps uint16) error {
	if protocolBps > Denominator || creatorBps > Denominator || uint32(protocolBps)+uint32(creatorBps) > Denominator {
		return apperrors.WithMetadata(apperrors.CodeInvalidFeeConfiguration, "fee rates exceed denominator", map[string]string{
			"ProtocolBps": strconv.Itoa(int(protocolBps)),
			"CreatorBps":  strconv.Itoa(int(creatorBps)),
		})
	}
	return nil
}

// Compute splits entryFee. Shares are floored; the pot takes the remainder
// so the three shares always sum to the fee.
func Compute(entryFee uint64, protocolBps, creatorBps uint16) (Split, error) {
	if err := ValidateRates(protocolBps, creatorBps); err != nil {
		return Split{}, err
	}
	protocol := mulDiv(entryFee, uint64(protocolBps))
	creator := mulDiv(entryFee, uint64(creatorBps))
	return Split{
		Protocol: protocol,
		Creator:  creator,
		Pot:      entryFee - protocol - creator,
	}, nil
}

// mulDiv computes floor(amount*bps/Denominator) with a 128-bit product.
// bps <= Denominator keeps the quotient within 64 bits.
func mulDiv(amount, bps uint64) uint64 {
	hi, lo := bits.Mul64(amount, bps)
	quo, _ := bits.Div64(hi, lo, Denominator)
	return quo
}
