package market

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors for the market observation ledger

var (
	// ErrInvalidPlayerID is returned when a player ID is zero or invalid
	ErrInvalidPlayerID = errors.New("invalid player ID")

	// ErrInvalidPortID is returned when a port identifier is empty
	ErrInvalidPortID = errors.New("invalid port ID")

	// ErrInvalidCommodityID is returned when a commodity identifier is empty
	ErrInvalidCommodityID = errors.New("invalid commodity ID")

	// ErrInvalidPrice is returned when a buy or sell price is negative
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidTimestamp is returned when an observation timestamp is zero
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// ErrOutOfOrderObservation is returned when an observation's timestamp falls
// behind the ledger's latest entry for the same (port, commodity) pair by
// more than the clock-skew tolerance. The ledger rejects rather than
// reorders.
type ErrOutOfOrderObservation struct {
	Latest time.Time
	Got    time.Time
}

func (e *ErrOutOfOrderObservation) Error() string {
	return fmt.Sprintf("out-of-order observation: got %s but ledger is already at %s",
		e.Got.Format(time.RFC3339), e.Latest.Format(time.RFC3339))
}
