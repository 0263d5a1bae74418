package book

import (
	"fmt"

	"wxarb/pkg/types"
)

func errLevelNotFound(price types.Price) error {
	return fmt.Errorf("%w: no level at price %s", types.ErrInvariant, price)
}

func errLevelUnderflow(price types.Price, have, want types.Volume) error {
	return fmt.Errorf("%w: level %s has volume %d, cannot remove %d", types.ErrInvariant, price, have, want)
}

func errUnknownOrder(id types.OrderID) error {
	return fmt.Errorf("%w: unknown order id %d", types.ErrInvariant, id)
}

func errOrderAlreadyExists(id types.OrderID) error {
	return fmt.Errorf("%w: order id %d already resting", types.ErrInvariant, id)
}

func errPriceMismatch(id types.OrderID, orderPrice, tradePrice types.Price) error {
	return fmt.Errorf("%w: order %d price %s does not match trade price %s", types.ErrInvariant, id, orderPrice, tradePrice)
}

func errRemainderMismatch(id types.OrderID, computed, reported types.Volume) error {
	return fmt.Errorf("%w: order %d computed remainder %d does not match reported remainder %d", types.ErrInvariant, id, computed, reported)
}

func errBadAggressor(tt types.TradeType) error {
	return fmt.Errorf("%w: trade type %s cannot be resolved to an aggressor side", types.ErrInvariant, tt)
}
