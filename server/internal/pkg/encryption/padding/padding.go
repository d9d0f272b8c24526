// Package padding aligns arbitrary-length data to a cipher block size.
package padding

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPadding   = errors.New("padding: invalid padding")
	ErrInvalidBlockSize = errors.New("padding: invalid block size")
	ErrDataSize         = errors.New("padding: input is not a multiple of block size")
	ErrUnknownKind      = errors.New("padding: unknown padding")
)

// Kind selects a padding scheme
type Kind int

const (
	PKCS7 Kind = iota
	ANSIX923
	ISO10126
	Zeros
)

func (k Kind) String() string {
	switch k {
	case PKCS7:
		return "PKCS7"
	case ANSIX923:
		return "ANSI_X923"
	case ISO10126:
		return "ISO_10126"
	case Zeros:
		return "ZEROS"
	default:
		return "UNKNOWN"
	}
}

// Kinds returns every padding scheme
func Kinds() []Kind {
	return []Kind{PKCS7, ANSIX923, ISO10126, Zeros}
}

// ParseKind maps a wire name (PKCS7, ANSI_X923, ISO_10126, ZEROS) to a Kind
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_", ".", "").Replace(name))
	switch normalized {
	case "PKCS7", "PKCS_7":
		return PKCS7, nil
	case "ANSI_X923", "ANSIX923":
		return ANSIX923, nil
	case "ISO_10126", "ISO10126":
		return ISO10126, nil
	case "ZEROS", "ZERO":
		return Zeros, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Padding is a reversible block alignment strategy.
//
// Pad always appends between 1 and blockSize bytes, a whole block when data is
// already aligned, so Unpad can recover the original length. Neither method
// modifies its argument.
type Padding interface {
	Pad(data []byte, blockSize int) ([]byte, error)
	Unpad(data []byte, blockSize int) ([]byte, error)
	Kind() Kind
}

// New returns the Padding implementation for kind
func New(kind Kind) (Padding, error) {
	switch kind {
	case PKCS7:
		return pkcs7{}, nil
	case ANSIX923:
		return ansiX923{}, nil
	case ISO10126:
		return iso10126{}, nil
	case Zeros:
		return zeros{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

// grow copies data into a new slice with padLen extra zero bytes
func grow(data []byte, blockSize int) ([]byte, int, error) {
	if blockSize < 1 || blockSize > 255 {
		return nil, 0, fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}
	padLen := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	return out, padLen, nil
}

// trailer validates the final length byte shared by the length-tagged schemes
func trailer(data []byte, blockSize int) (int, error) {
	if err := checkPadded(data, blockSize); err != nil {
		return 0, err
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return 0, fmt.Errorf("%w: length byte %d", ErrInvalidPadding, padLen)
	}
	return padLen, nil
}

func checkPadded(data []byte, blockSize int) error {
	if blockSize < 1 || blockSize > 255 {
		return fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: empty input", ErrInvalidPadding)
	}
	if len(data)%blockSize != 0 {
		return ErrDataSize
	}
	return nil
}

func strip(data []byte, padLen int) []byte {
	out := make([]byte, len(data)-padLen)
	copy(out, data)
	return out
}

// pkcs7 repeats the padding length in every padding byte (RFC 5652)
type pkcs7 struct{}

func (pkcs7) Kind() Kind { return PKCS7 }

func (pkcs7) Pad(data []byte, blockSize int) ([]byte, error) {
	out, padLen, err := grow(data, blockSize)
	if err != nil {
		return nil, err
	}
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out, nil
}

func (pkcs7) Unpad(data []byte, blockSize int) ([]byte, error) {
	padLen, err := trailer(data, blockSize)
	if err != nil {
		return nil, err
	}
	for _, b := range data[len(data)-padLen:] {
		if b != byte(padLen) {
			return nil, ErrInvalidPadding
		}
	}
	return strip(data, padLen), nil
}

// ansiX923 fills with zeros and ends with the padding length
type ansiX923 struct{}

func (ansiX923) Kind() Kind { return ANSIX923 }

func (ansiX923) Pad(data []byte, blockSize int) ([]byte, error) {
	out, padLen, err := grow(data, blockSize)
	if err != nil {
		return nil, err
	}
	out[len(out)-1] = byte(padLen)
	return out, nil
}

func (ansiX923) Unpad(data []byte, blockSize int) ([]byte, error) {
	padLen, err := trailer(data, blockSize)
	if err != nil {
		return nil, err
	}
	for _, b := range data[len(data)-padLen : len(data)-1] {
		if b != 0 {
			return nil, ErrInvalidPadding
		}
	}
	return strip(data, padLen), nil
}

// iso10126 fills with random bytes and ends with the padding length
type iso10126 struct{}

func (iso10126) Kind() Kind { return ISO10126 }

func (iso10126) Pad(data []byte, blockSize int) ([]byte, error) {
	out, padLen, err := grow(data, blockSize)
	if err != nil {
		return nil, err
	}
	if _, err := rand.Read(out[len(data) : len(out)-1]); err != nil {
		return nil, fmt.Errorf("padding: random fill: %w", err)
	}
	out[len(out)-1] = byte(padLen)
	return out, nil
}

func (iso10126) Unpad(data []byte, blockSize int) ([]byte, error) {
	padLen, err := trailer(data, blockSize)
	if err != nil {
		return nil, err
	}
	return strip(data, padLen), nil
}

// zeros appends zero bytes. Data that itself ends in 0x00 cannot be told
// apart from its padding and loses those trailing zeros on Unpad.
type zeros struct{}

func (zeros) Kind() Kind { return Zeros }

func (zeros) Pad(data []byte, blockSize int) ([]byte, error) {
	out, _, err := grow(data, blockSize)
	return out, err
}

func (zeros) Unpad(data []byte, blockSize int) ([]byte, error) {
	if err := checkPadded(data, blockSize); err != nil {
		return nil, err
	}
	if data[len(data)-1] != 0 {
		return nil, fmt.Errorf("%w: missing zero fill", ErrInvalidPadding)
	}
	// only the final block can hold fill bytes
	end := len(data) - 1
	for end > len(data)-blockSize && data[end-1] == 0 {
		end--
	}
	return strip(data, len(data)-end), nil
}
