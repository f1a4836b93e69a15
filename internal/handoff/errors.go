package handoff

import "errors"

var (
	errShortRecord        = errors.New("handoff: truncated record")
	errUnsupportedVersion = errors.New("handoff: unsupported record version")
)
