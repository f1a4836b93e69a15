package capability

import "errors"

var (
	errEmptyChain        = errors.New("certificate chain is empty")
	errWrongKeyType      = errors.New("private/public key type does not match signature scheme")
	errHashUnavailable   = errors.New("hash algorithm is not linked into the binary")
	errUnsupportedScheme = errors.New("unsupported signature scheme")
	errSignatureInvalid  = errors.New("signature verification failed")
)
