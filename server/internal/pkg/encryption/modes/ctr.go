package modes

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// counter implements CTR and RandomDelta. Block i of the stream is XORed
// with E(nonce || (start + i*step)), where the counter half of the block is
// big-endian and wraps around. CTR uses step 1; RandomDelta derives an odd
// step from the nonce and seed, so the sequence still covers the whole
// counter space before repeating.
type counter struct {
	base
	kind   Kind
	nonce  []byte
	start  uint64
	step   uint64
	mask   uint64
	offset uint64 // blocks already processed
}

func (m *counter) Kind() Kind {
	return m.kind
}

func (m *counter) Init(key []byte, params Params) error {
	m.ready = false

	var (
		nonce []byte
		start int64
		step  uint64 = 1
	)
	switch p := params.(type) {
	case CounterParams:
		if m.kind != CTR {
			return wrongParams(m.kind, "RandomDeltaParams", params)
		}
		nonce, start = p.Nonce, p.Counter
	case RandomDeltaParams:
		if m.kind != RandomDelta {
			return wrongParams(m.kind, "CounterParams", params)
		}
		nonce, start = p.Nonce, p.Counter
		step = deriveStep(p.Nonce, p.Seed)
	default:
		if m.kind == CTR {
			return wrongParams(m.kind, "CounterParams", params)
		}
		return wrongParams(m.kind, "RandomDeltaParams", params)
	}

	if want := NonceSize(m.blockSize); len(nonce) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidNonce, len(nonce), want)
	}
	if start < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeCounter, start)
	}
	width := min(m.blockSize-len(nonce), 8)
	mask := ^uint64(0)
	if width < 8 {
		mask = 1<<(8*width) - 1
	}
	if uint64(start) > mask {
		return fmt.Errorf("%w: %d exceeds %d bytes", ErrCounterRange, start, width)
	}
	if err := m.initCipher(key); err != nil {
		return err
	}

	m.mask = mask
	m.nonce = bytes.Clone(nonce)
	m.start = uint64(start)
	m.step = step
	m.offset = 0
	return nil
}

// NonceSize is the nonce length CTR and RandomDelta expect for a block size
func NonceSize(blockSize int) int {
	return blockSize / 2
}

// deriveStep hashes nonce||seed and forces the result odd
func deriveStep(nonce, seed []byte) uint64 {
	sum := blake2b.Sum256(append(bytes.Clone(nonce), seed...))
	return binary.BigEndian.Uint64(sum[:8]) | 1
}

// counterBlock builds the input block for stream position index
func (m *counter) counterBlock(index uint64) []byte {
	block := make([]byte, m.blockSize)
	copy(block, m.nonce)

	value := (m.start + index*m.step) & m.mask
	tail := block[len(m.nonce):]
	for i := len(tail) - 1; i >= 0 && value != 0; i-- {
		tail[i] = byte(value)
		value >>= 8
	}
	return block
}

func (m *counter) xorKeyStream(ctx context.Context, src []byte) ([]byte, error) {
	if err := m.check(src); err != nil {
		return nil, err
	}

	offset := m.offset
	keystream, err := m.pool.Map(ctx, src, m.blockSize, func(i int, _ []byte) ([]byte, error) {
		return m.cipher.Encrypt(m.counterBlock(offset + uint64(i)))
	})
	if err != nil {
		return nil, err
	}

	xorBytes(keystream, keystream, src)
	m.offset += uint64(len(src) / m.blockSize)
	return keystream, nil
}

func (m *counter) Encrypt(ctx context.Context, src []byte) ([]byte, error) {
	return m.xorKeyStream(ctx, src)
}

func (m *counter) Decrypt(ctx context.Context, src []byte) ([]byte, error) {
	return m.xorKeyStream(ctx, src)
}
