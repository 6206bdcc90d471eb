package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig marks out-of-range or missing configuration values. It is
// raised before a run starts and is always fatal.
var ErrInvalidConfig = errors.New("invalid config")

// ErrMissingPriceData marks a symbol lacking a bar for a date. Callers
// recover locally by skipping that symbol for the day.
var ErrMissingPriceData = errors.New("missing price data")

// InvariantError reports a ledger accounting violation: the daily balance
// identity failed or a slot held two positions. It indicates a bug in the
// engine and aborts the run with the ledger-to-date preserved.
type InvariantError struct {
	Date   time.Time
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("ledger invariant violated on %s: %s", e.Date.Format("2006-01-02"), e.Detail)
}
