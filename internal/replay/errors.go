package replay

import "errors"

// ErrInvalidOrdering is returned when stored spins are not in observed_at order.
var ErrInvalidOrdering = errors.New("spins are not in chronological order")

// ErrNoSpins is returned when a table has nothing to replay.
var ErrNoSpins = errors.New("no spins to replay")
