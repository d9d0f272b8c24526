// Package modes turns a BlockCipher into a tool for block-aligned buffers of
// any length.
//
// Every Mode owns the chaining state of exactly one logical stream: Init
// resets it and each Encrypt or Decrypt call continues where the previous
// one stopped. A Mode is not safe for concurrent use; give every concurrent
// stream its own instance. Work that does not depend on chaining state (ECB
// both ways, CBC and CFB decryption, the CTR and RandomDelta keystreams) is
// fanned out through a parallel.Pool.
package modes

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/parallel"
)

var (
	ErrNotAligned      = errors.New("modes: input is not a multiple of block size")
	ErrNotInitialized  = errors.New("modes: mode used before Init")
	ErrWrongParams     = errors.New("modes: wrong parameter type for mode")
	ErrInvalidIV       = errors.New("modes: invalid IV length")
	ErrInvalidNonce    = errors.New("modes: invalid nonce length")
	ErrNegativeCounter = errors.New("modes: negative counter")
	ErrUnknownKind     = errors.New("modes: unknown mode")
	ErrNilCipher       = errors.New("modes: nil block cipher")
	ErrBlockSize       = errors.New("modes: invalid cipher block size")
	ErrCounterRange    = errors.New("modes: counter does not fit the counter field")
)

// Kind selects a mode of operation
type Kind int

const (
	ECB Kind = iota
	CBC
	CFB
	CTR
	OFB
	PCBC
	RandomDelta
)

func (k Kind) String() string {
	switch k {
	case ECB:
		return "ECB"
	case CBC:
		return "CBC"
	case CFB:
		return "CFB"
	case CTR:
		return "CTR"
	case OFB:
		return "OFB"
	case PCBC:
		return "PCBC"
	case RandomDelta:
		return "RANDOM_DELTA"
	default:
		return "UNKNOWN"
	}
}

// Kinds returns every mode
func Kinds() []Kind {
	return []Kind{ECB, CBC, CFB, CTR, OFB, PCBC, RandomDelta}
}

// ParseKind maps a mode name such as "CBC" or "RANDOM_DELTA" to a Kind
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToUpper(strings.NewReplacer("_", "", "-", "", " ", "").Replace(name))
	for _, k := range Kinds() {
		if strings.ReplaceAll(k.String(), "_", "") == normalized {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// UsesIV reports whether the mode is initialized with IVParams
func (k Kind) UsesIV() bool {
	switch k {
	case CBC, CFB, OFB, PCBC:
		return true
	default:
		return false
	}
}

// UsesNonce reports whether the mode is initialized with a nonce and counter
func (k Kind) UsesNonce() bool {
	return k == CTR || k == RandomDelta
}

// Mode is a block cipher mode of operation bound to one stream
type Mode interface {
	Kind() Kind
	BlockSize() int

	// Init keys the cipher, validates params and resets the chaining state
	Init(key []byte, params Params) error

	// Encrypt processes a block-aligned buffer and returns one of equal length
	Encrypt(ctx context.Context, src []byte) ([]byte, error)

	// Decrypt is the inverse of Encrypt
	Decrypt(ctx context.Context, src []byte) ([]byte, error)
}

// New returns an uninitialized mode of the given kind around c. pool may be
// nil, in which case all work runs on the calling goroutine.
func New(kind Kind, c encryption.BlockCipher, pool *parallel.Pool) (Mode, error) {
	if c == nil {
		return nil, ErrNilCipher
	}
	if c.BlockSize() <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBlockSize, c.BlockSize())
	}
	b := base{cipher: c, pool: pool, blockSize: c.BlockSize()}

	switch kind {
	case ECB:
		return &ecb{base: b}, nil
	case CBC:
		return &cbc{base: b}, nil
	case CFB:
		return &cfb{base: b}, nil
	case OFB:
		return &ofb{base: b}, nil
	case PCBC:
		return &pcbc{base: b}, nil
	case CTR, RandomDelta:
		return &counter{base: b, kind: kind}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

// base holds what every mode shares: the cipher, the pool and the
// initialized flag.
type base struct {
	cipher    encryption.BlockCipher
	pool      *parallel.Pool
	blockSize int
	ready     bool
}

func (b *base) BlockSize() int {
	return b.blockSize
}

func (b *base) initCipher(key []byte) error {
	b.ready = false
	if err := b.cipher.Init(key); err != nil {
		return err
	}
	b.ready = true
	return nil
}

func (b *base) check(src []byte) error {
	if !b.ready {
		return ErrNotInitialized
	}
	if len(src)%b.blockSize != 0 {
		return fmt.Errorf("%w: %d bytes, block size %d", ErrNotAligned, len(src), b.blockSize)
	}
	return nil
}

func (b *base) checkIV(iv []byte) error {
	if len(iv) != b.blockSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidIV, len(iv), b.blockSize)
	}
	return nil
}

// encryptBlocks runs E over every block through the pool
func (b *base) encryptBlocks(ctx context.Context, src []byte) ([]byte, error) {
	return b.pool.Map(ctx, src, b.blockSize, func(_ int, block []byte) ([]byte, error) {
		return b.cipher.Encrypt(block)
	})
}

// decryptBlocks runs D over every block through the pool
func (b *base) decryptBlocks(ctx context.Context, src []byte) ([]byte, error) {
	return b.pool.Map(ctx, src, b.blockSize, func(_ int, block []byte) ([]byte, error) {
		return b.cipher.Decrypt(block)
	})
}

// checkpoint is called every parallel.BatchBlocks blocks by sequential loops
func checkpoint(ctx context.Context, block int) error {
	if block%parallel.BatchBlocks != 0 {
		return nil
	}
	return parallel.Checkpoint(ctx)
}

func wrongParams(kind Kind, want string, got Params) error {
	return fmt.Errorf("%w: %s needs %s, got %T", ErrWrongParams, kind, want, got)
}

func xorBytes(dst, a, b []byte) {
	subtle.XORBytes(dst, a, b)
}
