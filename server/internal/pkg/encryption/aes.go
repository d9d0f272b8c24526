package encryption

import (
	"crypto/aes"
	"crypto/cipher"
)

var aesKeySizes = []int{16, 24, 32}

// AES adapts crypto/aes to the BlockCipher contract
type AES struct {
	block cipher.Block
}

// NewAES returns an unkeyed AES cipher
func NewAES() *AES {
	return &AES{}
}

func (a *AES) BlockSize() int {
	return AESBlockSize
}

func (a *AES) KeySizes() []int {
	return aesKeySizes
}

func (a *AES) Init(key []byte) error {
	if err := CheckKeySize(key, aesKeySizes); err != nil {
		return err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	a.block = block
	return nil
}

func (a *AES) Encrypt(block []byte) ([]byte, error) {
	if a.block == nil {
		return nil, ErrNotInitialized
	}
	if err := CheckBlock(block, AESBlockSize); err != nil {
		return nil, err
	}
	out := make([]byte, AESBlockSize)
	a.block.Encrypt(out, block)
	return out, nil
}

func (a *AES) Decrypt(block []byte) ([]byte, error) {
	if a.block == nil {
		return nil, ErrNotInitialized
	}
	if err := CheckBlock(block, AESBlockSize); err != nil {
		return nil, err
	}
	out := make([]byte, AESBlockSize)
	a.block.Decrypt(out, block)
	return out, nil
}
