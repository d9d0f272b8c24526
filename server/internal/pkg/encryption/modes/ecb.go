package modes

import "context"

// ecb is Electronic Codebook: every block is transformed on its own
type ecb struct {
	base
}

func (m *ecb) Kind() Kind {
	return ECB
}

func (m *ecb) Init(key []byte, params Params) error {
	if _, ok := params.(NoParams); !ok {
		m.ready = false
		return wrongParams(ECB, "NoParams", params)
	}
	return m.initCipher(key)
}

func (m *ecb) Encrypt(ctx context.Context, src []byte) ([]byte, error) {
	if err := m.check(src); err != nil {
		return nil, err
	}
	return m.encryptBlocks(ctx, src)
}

func (m *ecb) Decrypt(ctx context.Context, src []byte) ([]byte, error) {
	if err := m.check(src); err != nil {
		return nil, err
	}
	return m.decryptBlocks(ctx, src)
}
