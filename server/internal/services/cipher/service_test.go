package cipher

import (
	"bytes"
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/config"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/modes"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/padding"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/symmetric"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/protocol"
)

func testService() *Service {
	cfg := config.Load()
	cfg.Cipher.Workers = 2
	cfg.KDF.Iterations = 1000
	return NewService(cfg)
}

var (
	keyHex = hex.EncodeToString([]byte("0123456789ABCDEF"))
	ivHex  = hex.EncodeToString([]byte("fedcba9876543210"))
)

func TestConfigDefaults(t *testing.T) {
	s := testService()
	cfg, err := s.Config(protocol.CipherParams{Key: keyHex, IV: ivHex})
	require.NoError(t, err)

	require.Equal(t, "RC6", cfg.Algorithm)
	require.Equal(t, modes.CBC, cfg.Mode)
	require.Equal(t, padding.PKCS7, cfg.Padding)
	require.Equal(t, []byte("0123456789ABCDEF"), cfg.Key)
	require.Equal(t, []byte("fedcba9876543210"), cfg.IV)
}

func TestConfigParsesNames(t *testing.T) {
	s := testService()
	cfg, err := s.Config(protocol.CipherParams{
		Algorithm: "aes",
		Mode:      protocol.RandomDelta,
		Padding:   protocol.ANSI,
		Key:       keyHex,
		Nonce:     "0001020304050607",
		Counter:   9,
		Seed:      "ff",
	})
	require.NoError(t, err)

	require.Equal(t, "AES", cfg.Algorithm)
	require.Equal(t, modes.RandomDelta, cfg.Mode)
	require.Equal(t, padding.ANSIX923, cfg.Padding)
	require.Equal(t, modes.RandomDeltaParams{
		Nonce:   []byte{0, 1, 2, 3, 4, 5, 6, 7},
		Counter: 9,
		Seed:    []byte{0xff},
	}, cfg.Params())
}

func TestConfigRejectsBadParams(t *testing.T) {
	s := testService()
	tests := []struct {
		name   string
		params protocol.CipherParams
	}{
		{"bad hex key", protocol.CipherParams{Key: "zz"}},
		{"bad hex iv", protocol.CipherParams{Key: keyHex, IV: "abc"}},
		{"unknown mode", protocol.CipherParams{Key: keyHex, Mode: "XTS"}},
		{"unknown padding", protocol.CipherParams{Key: keyHex, Padding: "OAEP"}},
		{"key and passphrase", protocol.CipherParams{Key: keyHex, Passphrase: "secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Config(tt.params)
			require.Error(t, err)
			require.Equal(t, symmetric.KindConfig, symmetric.Classify(err))
		})
	}

	_, err := s.NewContext(protocol.CipherParams{Key: keyHex, IV: ivHex[:30]})
	require.ErrorIs(t, err, modes.ErrInvalidIV)
}

func TestPassphraseKeys(t *testing.T) {
	s := testService()

	a, err := s.Config(protocol.CipherParams{Passphrase: "correct horse", IV: ivHex})
	require.NoError(t, err)
	require.Len(t, a.Key, KeySize)
	require.Equal(t, DeriveKey("correct horse", []byte("fedcba9876543210"), 1000, KeySize), a.Key)

	b, err := s.Config(protocol.CipherParams{Passphrase: "correct horse", Mode: protocol.ECB})
	require.NoError(t, err)
	require.Equal(t, DeriveKey("correct horse", AppSalt, 1000, KeySize), b.Key)
	require.False(t, bytes.Equal(a.Key, b.Key))
}

func TestNewContextRoundTrip(t *testing.T) {
	s := testService()
	params := protocol.CipherParams{Mode: protocol.CTR, Passphrase: "pw", Nonce: "a1a2a3a4a5a6a7a8"}
	plaintext := bytes.Repeat([]byte("stream me "), 1000)

	enc, err := s.NewContext(params)
	require.NoError(t, err)
	ciphertext, err := enc.Encrypt(context.Background(), plaintext)
	require.NoError(t, err)

	dec, err := s.NewContext(params)
	require.NoError(t, err)
	decrypted, err := dec.Decrypt(context.Background(), ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestAlgorithms(t *testing.T) {
	resp := testService().Algorithms()
	require.Equal(t, []string{"AES", "RC6"}, resp.Algorithms)
	require.Contains(t, resp.Modes, "RANDOM_DELTA")
	require.Len(t, resp.Modes, 7)
	require.Equal(t, []string{"PKCS7", "ANSI_X923", "ISO_10126", "ZEROS"}, resp.Paddings)
}

func TestDirection(t *testing.T) {
	d, err := Direction("ENCRYPT")
	require.NoError(t, err)
	require.Equal(t, symmetric.Encrypting, d)

	d, err = Direction(protocol.Decrypt)
	require.NoError(t, err)
	require.Equal(t, symmetric.Decrypting, d)

	_, err = Direction("sign")
	require.ErrorIs(t, err, ErrUnknownOperation)
}
