package signaturehash

import "errors"

var (
	errInvalidPrivateKey           = errors.New("invalid private key type")
	errInvalidSignatureAlgorithm   = errors.New("invalid signature algorithm")
	errInvalidHashAlgorithm        = errors.New("invalid hash algorithm")
	errNoAvailableSignatureSchemes = errors.New("no available signature schemes")
)
