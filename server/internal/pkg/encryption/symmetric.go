package encryption

import "errors"

var (
	ErrInvalidKeySize   = errors.New("encryption: invalid key size")
	ErrInvalidBlockSize = errors.New("encryption: invalid block size")
	ErrNotInitialized   = errors.New("encryption: cipher used before Init")
	ErrUnknownAlgorithm = errors.New("encryption: unknown algorithm")
)
