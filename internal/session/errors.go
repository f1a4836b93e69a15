package session

import "errors"

var (
	errShortSession  = errors.New("session: truncated serialized session")
	errTruncatedTag  = errors.New("session: truncated tagged field")
	errKeyStoreEmpty = errors.New("session: ticket key store has no current generation")
)
