package modes

import (
	"bytes"
	"context"
)

// ofb is Output Feedback: k[i] = E(k[i-1]), k[-1] = IV, out[i] = in[i] ^ k[i].
// The keystream feeds on itself so both directions are sequential.
type ofb struct {
	base
	register []byte
}

func (m *ofb) Kind() Kind {
	return OFB
}

func (m *ofb) Init(key []byte, params Params) error {
	m.ready = false
	p, ok := params.(IVParams)
	if !ok {
		return wrongParams(OFB, "IVParams", params)
	}
	if err := m.checkIV(p.IV); err != nil {
		return err
	}
	if err := m.initCipher(key); err != nil {
		return err
	}
	m.register = bytes.Clone(p.IV)
	return nil
}

func (m *ofb) Encrypt(ctx context.Context, src []byte) ([]byte, error) {
	if err := m.check(src); err != nil {
		return nil, err
	}

	bs := m.blockSize
	dst := make([]byte, len(src))
	register := m.register

	for i := 0; i*bs < len(src); i++ {
		if err := checkpoint(ctx, i); err != nil {
			return nil, err
		}
		off := i * bs

		next, err := m.cipher.Encrypt(register)
		if err != nil {
			return nil, err
		}
		xorBytes(dst[off:off+bs], src[off:off+bs], next)
		register = next
	}

	m.register = bytes.Clone(register)
	return dst, nil
}

// Decrypt is identical to Encrypt in OFB
func (m *ofb) Decrypt(ctx context.Context, src []byte) ([]byte, error) {
	return m.Encrypt(ctx, src)
}
