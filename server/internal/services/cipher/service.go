package cipher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/config"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/modes"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/padding"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/parallel"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/symmetric"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/helpers"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/protocol"
)

var (
	ErrKeyAndPassphrase = errors.New("key and passphrase are mutually exclusive")
	ErrInvalidHex       = errors.New("invalid hex value")
	ErrUnknownOperation = errors.New("unknown operation")
)

// KeySize is the length of keys derived from a passphrase
const KeySize = 32

// AppSalt salts passphrase derivation when no IV or nonce is available
var AppSalt = []byte("mai-crypto/symmetric/v1")

// DeriveKey stretches passphrase into a size-byte key with PBKDF2-HMAC-SHA256
func DeriveKey(passphrase string, salt []byte, iterations, size int) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, size, sha256.New)
}

// Service turns request parameters into cipher contexts. All contexts it
// builds share one worker pool.
type Service struct {
	cfg    *config.Config
	pool   *parallel.Pool
	logger *helpers.Logger
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:    cfg,
		pool:   parallel.NewPool(cfg.Cipher.Workers),
		logger: helpers.NewLogger("cipher"),
	}
}

// Pool returns the worker pool shared by the service's contexts
func (s *Service) Pool() *parallel.Pool {
	return s.pool
}

// Algorithms lists every algorithm, mode and padding a request may name
func (s *Service) Algorithms() *protocol.AlgorithmsResponse {
	resp := &protocol.AlgorithmsResponse{Algorithms: encryption.Algorithms()}
	for _, k := range modes.Kinds() {
		resp.Modes = append(resp.Modes, k.String())
	}
	for _, k := range padding.Kinds() {
		resp.Paddings = append(resp.Paddings, k.String())
	}
	return resp
}

// Config resolves p against the configured defaults. Parse failures are
// reported as configuration errors.
func (s *Service) Config(p protocol.CipherParams) (symmetric.Config, error) {
	cfg := symmetric.Config{
		Algorithm: strings.ToUpper(orDefault(string(p.Algorithm), s.cfg.Cipher.Algorithm)),
		Counter:   p.Counter,
	}

	var err error
	if cfg.Mode, err = modes.ParseKind(orDefault(string(p.Mode), s.cfg.Cipher.Mode)); err != nil {
		return cfg, configError(err)
	}
	if cfg.Padding, err = padding.ParseKind(orDefault(string(p.Padding), s.cfg.Cipher.Padding)); err != nil {
		return cfg, configError(err)
	}

	if cfg.IV, err = decodeHex("iv", p.IV); err != nil {
		return cfg, err
	}
	if cfg.Nonce, err = decodeHex("nonce", p.Nonce); err != nil {
		return cfg, err
	}
	if cfg.Seed, err = decodeHex("seed", p.Seed); err != nil {
		return cfg, err
	}

	switch {
	case p.Key != "" && p.Passphrase != "":
		return cfg, configError(ErrKeyAndPassphrase)
	case p.Passphrase != "":
		salt := AppSalt
		if iv := cfg.InitVector(); len(iv) > 0 {
			salt = iv
		}
		cfg.Key = DeriveKey(p.Passphrase, salt, s.cfg.KDF.Iterations, KeySize)
	default:
		if cfg.Key, err = decodeHex("key", p.Key); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// NewContext builds an initialized context for p on the shared pool
func (s *Service) NewContext(p protocol.CipherParams) (*symmetric.Context, error) {
	cfg, err := s.Config(p)
	if err != nil {
		return nil, err
	}
	c, err := symmetric.New(cfg, s.pool)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("context ready", cfg.Algorithm, cfg.Mode, cfg.Padding)
	return c, nil
}

// Direction maps an operation name to a stream direction
func Direction(op protocol.Operation) (symmetric.Direction, error) {
	switch protocol.Operation(strings.ToLower(string(op))) {
	case protocol.Encrypt:
		return symmetric.Encrypting, nil
	case protocol.Decrypt:
		return symmetric.Decrypting, nil
	default:
		return 0, configError(fmt.Errorf("%w: %q", ErrUnknownOperation, op))
	}
}

func decodeHex(field, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, configError(fmt.Errorf("%w: %s: %v", ErrInvalidHex, field, err))
	}
	return b, nil
}

func configError(err error) error {
	return &symmetric.Error{Op: "params", Kind: symmetric.KindConfig, Err: err}
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
