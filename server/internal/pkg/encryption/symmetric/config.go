package symmetric

import (
	"crypto/rand"
	"fmt"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/modes"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/padding"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/parallel"
)

// Config selects and keys a cipher context
type Config struct {
	Algorithm string
	Mode      modes.Kind
	Padding   padding.Kind
	Key       []byte
	IV        []byte // CBC, CFB, OFB, PCBC
	Nonce     []byte // CTR, RandomDelta
	Counter   int64  // CTR, RandomDelta
	Seed      []byte // RandomDelta
	Workers   int    // used only when New gets no pool; 0 means sequential
}

// Params builds the parameter variant the configured mode expects
func (c Config) Params() modes.Params {
	switch c.Mode {
	case modes.ECB:
		return modes.NoParams{}
	case modes.CTR:
		return modes.CounterParams{Nonce: c.Nonce, Counter: c.Counter}
	case modes.RandomDelta:
		return modes.RandomDeltaParams{Nonce: c.Nonce, Counter: c.Counter, Seed: c.Seed}
	default:
		return modes.IVParams{IV: c.IV}
	}
}

// WithIV returns a copy of c with iv stored as the IV or the nonce,
// whichever the mode uses.
func (c Config) WithIV(iv []byte) Config {
	switch {
	case c.Mode.UsesIV():
		c.IV = iv
	case c.Mode.UsesNonce():
		c.Nonce = iv
	}
	return c
}

// InitVector returns the IV or the nonce, whichever the mode uses
func (c Config) InitVector() []byte {
	switch {
	case c.Mode.UsesIV():
		return c.IV
	case c.Mode.UsesNonce():
		return c.Nonce
	default:
		return nil
	}
}

// Validate checks the names and the presence of a key. Lengths are checked
// by the mode itself at Init.
func (c Config) Validate() error {
	if _, err := encryption.NewBlockCipher(c.Algorithm); err != nil {
		return wrap("config", err)
	}
	if c.Mode.String() == "UNKNOWN" {
		return wrap("config", fmt.Errorf("%w: %d", modes.ErrUnknownKind, int(c.Mode)))
	}
	if _, err := padding.New(c.Padding); err != nil {
		return wrap("config", err)
	}
	if len(c.Key) == 0 {
		return wrap("config", ErrMissingKey)
	}
	return nil
}

// New builds an initialized context from cfg. pool may be shared between
// contexts; when nil, a private pool of cfg.Workers is created if that is
// positive.
func New(cfg Config, pool *parallel.Pool) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cipher, err := encryption.NewBlockCipher(cfg.Algorithm)
	if err != nil {
		return nil, wrap("config", err)
	}
	pad, err := padding.New(cfg.Padding)
	if err != nil {
		return nil, wrap("config", err)
	}
	if pool == nil && cfg.Workers > 0 {
		pool = parallel.NewPool(cfg.Workers)
	}
	mode, err := modes.New(cfg.Mode, cipher, pool)
	if err != nil {
		return nil, wrap("config", err)
	}

	c := NewContext(mode, pad)
	if err := c.Init(cfg.Key, cfg.Params()); err != nil {
		return nil, err
	}
	return c, nil
}

// IVSize is the length of the IV or nonce mode needs for blockSize, zero for
// ECB.
func IVSize(kind modes.Kind, blockSize int) int {
	switch {
	case kind.UsesIV():
		return blockSize
	case kind.UsesNonce():
		return modes.NonceSize(blockSize)
	default:
		return 0
	}
}

// GenerateIV returns a random IV or nonce for kind, or nil for ECB
func GenerateIV(kind modes.Kind, blockSize int) ([]byte, error) {
	n := IVSize(kind, blockSize)
	if n == 0 {
		return nil, nil
	}
	iv := make([]byte, n)
	if _, err := rand.Read(iv); err != nil {
		return nil, wrap("generate iv", err)
	}
	return iv, nil
}
