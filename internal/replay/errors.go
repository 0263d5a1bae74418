package replay

import (
	"fmt"

	"wxarb/pkg/types"
)

func errUnknownProduct(product string) error {
	return fmt.Errorf("%w: unknown product %q", types.ErrInvariant, product)
}

func errFutureExpiryMismatch(product, expiry, haltTime string) error {
	return fmt.Errorf("%w: product %q has expiry %q but haltTime %q", types.ErrInvariant, product, expiry, haltTime)
}

func errSequenceGap(got, want uint32) error {
	return fmt.Errorf("%w: got sequence %d, expected %d", types.ErrSequenceGap, got, want)
}
