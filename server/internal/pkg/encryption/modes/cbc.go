package modes

import (
	"bytes"
	"context"
)

// cbc is Cipher Block Chaining: c[i] = E(p[i] ^ c[i-1]), c[-1] = IV.
// Decryption only needs ciphertext it already holds, so D runs in parallel.
type cbc struct {
	base
	prev []byte
}

func (m *cbc) Kind() Kind {
	return CBC
}

func (m *cbc) Init(key []byte, params Params) error {
	m.ready = false
	p, ok := params.(IVParams)
	if !ok {
		return wrongParams(CBC, "IVParams", params)
	}
	if err := m.checkIV(p.IV); err != nil {
		return err
	}
	if err := m.initCipher(key); err != nil {
		return err
	}
	m.prev = bytes.Clone(p.IV)
	return nil
}

func (m *cbc) Encrypt(ctx context.Context, src []byte) ([]byte, error) {
	if err := m.check(src); err != nil {
		return nil, err
	}

	bs := m.blockSize
	dst := make([]byte, len(src))
	prev := m.prev
	block := make([]byte, bs)

	for i := 0; i*bs < len(src); i++ {
		if err := checkpoint(ctx, i); err != nil {
			return nil, err
		}
		off := i * bs

		// XOR plaintext with previous ciphertext
		xorBytes(block, src[off:off+bs], prev)

		encrypted, err := m.cipher.Encrypt(block)
		if err != nil {
			return nil, err
		}
		copy(dst[off:], encrypted)
		prev = dst[off : off+bs]
	}

	m.prev = bytes.Clone(prev)
	return dst, nil
}

func (m *cbc) Decrypt(ctx context.Context, src []byte) ([]byte, error) {
	if err := m.check(src); err != nil {
		return nil, err
	}
	if len(src) == 0 {
		return []byte{}, nil
	}

	dst, err := m.decryptBlocks(ctx, src)
	if err != nil {
		return nil, err
	}

	bs := m.blockSize
	xorBytes(dst[:bs], dst[:bs], m.prev)
	xorBytes(dst[bs:], dst[bs:], src[:len(src)-bs])

	m.prev = bytes.Clone(src[len(src)-bs:])
	return dst, nil
}
