package symmetric

import (
	"context"
	"errors"
	"fmt"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/modes"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/padding"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/parallel"
)

var (
	// ErrClosed is returned by reads and writes on a closed stream adapter
	ErrClosed = errors.New("symmetric: stream closed")

	// ErrMissingKey indicates a Config without key material
	ErrMissingKey = errors.New("symmetric: missing key")

	// ErrSameFile indicates a file operation whose input and output coincide
	ErrSameFile = errors.New("symmetric: input and output are the same file")
)

// ErrorKind is the failure category of an Error
type ErrorKind int

const (
	KindNone     ErrorKind = iota
	KindConfig             // wrong params, IV or nonce length, key size, unknown names
	KindInput              // buffer not aligned to the block size
	KindPadding            // padding failed validation, usually a wrong key or corrupt data
	KindCanceled           // the context ended while blocks were processed
	KindClosed             // use of a closed stream
	KindIO                 // anything else, mostly the underlying reader or writer
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConfig:
		return "config"
	case KindInput:
		return "input"
	case KindPadding:
		return "padding"
	case KindCanceled:
		return "canceled"
	case KindClosed:
		return "closed"
	default:
		return "io"
	}
}

// Error wraps an underlying error with the operation and its category
type Error struct {
	Op   string    // Operation that failed
	Kind ErrorKind // Failure category
	Err  error     // Underlying error
}

func (e *Error) Error() string {
	return fmt.Sprintf("symmetric.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrap tags err with op, classifying it by the sentinel it carries
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Op: op, Kind: Classify(err), Err: err}
}

// Classify returns the category of err. Errors that are not tagged and carry
// no known sentinel are reported as KindIO.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	switch {
	case errors.Is(err, ErrClosed):
		return KindClosed
	case errors.Is(err, parallel.ErrCanceled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, padding.ErrInvalidPadding):
		return KindPadding
	case errors.Is(err, modes.ErrNotAligned),
		errors.Is(err, parallel.ErrNotAligned),
		errors.Is(err, padding.ErrDataSize):
		return KindInput
	case errors.Is(err, modes.ErrWrongParams),
		errors.Is(err, modes.ErrInvalidIV),
		errors.Is(err, modes.ErrInvalidNonce),
		errors.Is(err, modes.ErrNegativeCounter),
		errors.Is(err, modes.ErrCounterRange),
		errors.Is(err, modes.ErrBlockSize),
		errors.Is(err, modes.ErrUnknownKind),
		errors.Is(err, modes.ErrNilCipher),
		errors.Is(err, modes.ErrNotInitialized),
		errors.Is(err, padding.ErrUnknownKind),
		errors.Is(err, padding.ErrInvalidBlockSize),
		errors.Is(err, encryption.ErrInvalidKeySize),
		errors.Is(err, encryption.ErrUnknownAlgorithm),
		errors.Is(err, encryption.ErrNotInitialized),
		errors.Is(err, ErrMissingKey),
		errors.Is(err, ErrSameFile):
		return KindConfig
	default:
		return KindIO
	}
}
