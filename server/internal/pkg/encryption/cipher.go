package encryption

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
)

// BlockCipher is the contract every block algorithm must implement to be
// driven by a cipher mode.
//
// A BlockCipher is created unkeyed and becomes usable once Init returns
// successfully. After that Encrypt and Decrypt must be safe for concurrent
// use, the same promise crypto/cipher.Block makes. Algorithms that cannot
// give that guarantee should be wrapped with Serialized.
type BlockCipher interface {
	// BlockSize returns the block size in bytes
	BlockSize() int

	// KeySizes returns the accepted key lengths in bytes
	KeySizes() []int

	// Init binds the key and derives the round keys
	Init(key []byte) error

	// Encrypt encrypts exactly one block
	Encrypt(block []byte) ([]byte, error)

	// Decrypt decrypts exactly one block
	Decrypt(block []byte) ([]byte, error)
}

const (
	RC6BlockSize = 16 // 128-bit blocks (16 bytes)
	AESBlockSize = 16
)

// CheckKeySize reports ErrInvalidKeySize unless len(key) is one of sizes.
func CheckKeySize(key []byte, sizes []int) error {
	if !slices.Contains(sizes, len(key)) {
		return fmt.Errorf("%w: got %d bytes, want one of %v", ErrInvalidKeySize, len(key), sizes)
	}
	return nil
}

// CheckBlock reports ErrInvalidBlockSize unless len(block) == size.
func CheckBlock(block []byte, size int) error {
	if len(block) != size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidBlockSize, len(block), size)
	}
	return nil
}

// Serialized wraps c so that every call is made under a mutex. Use it for
// algorithms whose Encrypt/Decrypt keep scratch state.
func Serialized(c BlockCipher) BlockCipher {
	if s, ok := c.(*serialized); ok {
		return s
	}
	return &serialized{c: c}
}

type serialized struct {
	mu sync.Mutex
	c  BlockCipher
}

func (s *serialized) BlockSize() int  { return s.c.BlockSize() }
func (s *serialized) KeySizes() []int { return s.c.KeySizes() }

func (s *serialized) Init(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Init(key)
}

func (s *serialized) Encrypt(block []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Encrypt(block)
}

func (s *serialized) Decrypt(block []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Decrypt(block)
}

var algorithms = map[string]func() BlockCipher{
	"RC6": func() BlockCipher { return NewRC6() },
	"AES": func() BlockCipher { return NewAES() },
}

// NewBlockCipher returns a fresh, unkeyed cipher for the given algorithm name
func NewBlockCipher(name string) (BlockCipher, error) {
	ctor, ok := algorithms[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return ctor(), nil
}

// Algorithms lists the registered algorithm names
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
