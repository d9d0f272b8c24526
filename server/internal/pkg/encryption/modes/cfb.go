package modes

import (
	"bytes"
	"context"
)

// cfb is full-block Cipher Feedback: c[i] = p[i] ^ E(c[i-1]), c[-1] = IV.
// When decrypting, the feedback blocks are the input ciphertext shifted by
// one block, so the E calls run in parallel.
type cfb struct {
	base
	prev []byte
}

func (m *cfb) Kind() Kind {
	return CFB
}

func (m *cfb) Init(key []byte, params Params) error {
	m.ready = false
	p, ok := params.(IVParams)
	if !ok {
		return wrongParams(CFB, "IVParams", params)
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

func (m *cfb) Encrypt(ctx context.Context, src []byte) ([]byte, error) {
	if err := m.check(src); err != nil {
		return nil, err
	}

	bs := m.blockSize
	dst := make([]byte, len(src))
	prev := m.prev

	for i := 0; i*bs < len(src); i++ {
		if err := checkpoint(ctx, i); err != nil {
			return nil, err
		}
		off := i * bs

		keystream, err := m.cipher.Encrypt(prev)
		if err != nil {
			return nil, err
		}
		xorBytes(dst[off:off+bs], src[off:off+bs], keystream)
		prev = dst[off : off+bs]
	}

	m.prev = bytes.Clone(prev)
	return dst, nil
}

func (m *cfb) Decrypt(ctx context.Context, src []byte) ([]byte, error) {
	if err := m.check(src); err != nil {
		return nil, err
	}
	if len(src) == 0 {
		return []byte{}, nil
	}

	bs := m.blockSize
	feedback := make([]byte, len(src))
	copy(feedback, m.prev)
	copy(feedback[bs:], src[:len(src)-bs])

	dst, err := m.encryptBlocks(ctx, feedback)
	if err != nil {
		return nil, err
	}
	xorBytes(dst, dst, src)

	m.prev = bytes.Clone(src[len(src)-bs:])
	return dst, nil
}
