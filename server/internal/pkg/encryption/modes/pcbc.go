package modes

import (
	"bytes"
	"context"
)

// pcbc is Propagating CBC: c[i] = E(p[i] ^ v), then v = p[i] ^ c[i], with
// v starting at the IV.
type pcbc struct {
	base
	chain []byte
}

func (m *pcbc) Kind() Kind {
	return PCBC
}

func (m *pcbc) Init(key []byte, params Params) error {
	m.ready = false
	p, ok := params.(IVParams)
	if !ok {
		return wrongParams(PCBC, "IVParams", params)
	}
	if err := m.checkIV(p.IV); err != nil {
		return err
	}
	if err := m.initCipher(key); err != nil {
		return err
	}
	m.chain = bytes.Clone(p.IV)
	return nil
}

func (m *pcbc) Encrypt(ctx context.Context, src []byte) ([]byte, error) {
	if err := m.check(src); err != nil {
		return nil, err
	}

	bs := m.blockSize
	dst := make([]byte, len(src))
	chain := bytes.Clone(m.chain)
	block := make([]byte, bs)

	for i := 0; i*bs < len(src); i++ {
		if err := checkpoint(ctx, i); err != nil {
			return nil, err
		}
		off := i * bs
		plain := src[off : off+bs]

		xorBytes(block, plain, chain)
		encrypted, err := m.cipher.Encrypt(block)
		if err != nil {
			return nil, err
		}
		copy(dst[off:], encrypted)

		// Update chaining value (XOR plaintext and ciphertext)
		xorBytes(chain, plain, encrypted)
	}

	m.chain = chain
	return dst, nil
}

func (m *pcbc) Decrypt(ctx context.Context, src []byte) ([]byte, error) {
	if err := m.check(src); err != nil {
		return nil, err
	}

	bs := m.blockSize
	dst := make([]byte, len(src))
	chain := bytes.Clone(m.chain)

	for i := 0; i*bs < len(src); i++ {
		if err := checkpoint(ctx, i); err != nil {
			return nil, err
		}
		off := i * bs
		encrypted := src[off : off+bs]

		decrypted, err := m.cipher.Decrypt(encrypted)
		if err != nil {
			return nil, err
		}
		xorBytes(dst[off:off+bs], decrypted, chain)
		xorBytes(chain, dst[off:off+bs], encrypted)
	}

	m.chain = chain
	return dst, nil
}
