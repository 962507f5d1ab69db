package settle

import "errors"

// ErrNotSettled reports a settlement attempt on a non-settled event.
var ErrNotSettled = errors.New("event is not settled")
