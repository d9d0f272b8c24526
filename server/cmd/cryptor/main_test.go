package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/config"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/modes"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/symmetric"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/protocol"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/services/cipher"
)

var testKey = hex.EncodeToString([]byte("0123456789ABCDEF"))

func testService() *cipher.Service {
	cfg := config.Load()
	cfg.KDF.Iterations = 1000
	cfg.Cipher.Workers = 2
	return cipher.NewService(cfg)
}

func testOptions(op string, mode protocol.EncryptionMode) options {
	return options{
		op:      op,
		in:      "-",
		out:     "-",
		embedIV: true,
		params: protocol.CipherParams{
			Algorithm: protocol.RC6,
			Mode:      mode,
			Padding:   protocol.PKCS7,
			Key:       testKey,
		},
	}
}

func runPipe(t *testing.T, svc *cipher.Service, opts options, input []byte) []byte {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), svc, opts, bytes.NewReader(input), &out))
	return out.Bytes()
}

func TestEmbeddedIVRoundTrip(t *testing.T) {
	svc := testService()
	plaintext := bytes.Repeat([]byte("cryptor "), 10000)

	for _, mode := range []protocol.EncryptionMode{protocol.ECB, protocol.CBC, protocol.CFB, protocol.OFB, protocol.PCBC, protocol.CTR, protocol.RandomDelta} {
		t.Run(string(mode), func(t *testing.T) {
			kind, err := modes.ParseKind(string(mode))
			require.NoError(t, err)

			ciphertext := runPipe(t, svc, testOptions("encrypt", mode), plaintext)
			header := 0
			switch {
			case kind.UsesIV():
				header = 16
			case kind.UsesNonce():
				header = 8
			}
			require.Len(t, ciphertext, header+len(plaintext)+16)

			again := runPipe(t, svc, testOptions("encrypt", mode), plaintext)
			if header > 0 {
				require.NotEqual(t, ciphertext, again, "fresh IV per run")
			}

			decrypted := runPipe(t, svc, testOptions("decrypt", mode), ciphertext)
			require.Equal(t, plaintext, decrypted)
		})
	}
}

func TestExplicitIVHasNoHeader(t *testing.T) {
	svc := testService()
	opts := testOptions("encrypt", protocol.CBC)
	opts.params.IV = hex.EncodeToString(bytes.Repeat([]byte{9}, 16))

	ciphertext := runPipe(t, svc, opts, []byte("exactly sixteen!"))
	require.Len(t, ciphertext, 32)

	opts.op = "decrypt"
	require.Equal(t, "exactly sixteen!", string(runPipe(t, svc, opts, ciphertext)))
}

func TestPassphraseWithEmbeddedNonce(t *testing.T) {
	svc := testService()
	opts := testOptions("encrypt", protocol.CTR)
	opts.params.Key = ""
	opts.params.Passphrase = "hunter2"

	ciphertext := runPipe(t, svc, opts, []byte("derived key"))
	opts.op = "decrypt"
	require.Equal(t, "derived key", string(runPipe(t, svc, opts, ciphertext)))

	opts.params.Passphrase = "hunter3"
	var out bytes.Buffer
	err := run(context.Background(), svc, opts, bytes.NewReader(ciphertext), &out)
	if err == nil {
		require.NotEqual(t, "derived key", out.String())
	}
}

func TestFiles(t *testing.T) {
	svc := testService()
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.txt")
	enc := filepath.Join(dir, "plain.enc")
	dec := filepath.Join(dir, "plain.dec")
	data := bytes.Repeat([]byte("file contents\n"), 5000)
	require.NoError(t, os.WriteFile(plain, data, 0o644))

	for _, embed := range []bool{true, false} {
		opts := testOptions("encrypt", protocol.OFB)
		opts.embedIV = embed
		if !embed {
			opts.params.IV = hex.EncodeToString(bytes.Repeat([]byte{3}, 16))
		}
		opts.in, opts.out = plain, enc
		require.NoError(t, run(context.Background(), svc, opts, nil, nil))

		opts.op = "decrypt"
		opts.in, opts.out = enc, dec
		require.NoError(t, run(context.Background(), svc, opts, nil, nil))

		got, err := os.ReadFile(dec)
		require.NoError(t, err)
		require.Equal(t, data, got)
	}
}

func TestSameFileRejected(t *testing.T) {
	svc := testService()
	dir := t.TempDir()
	path := filepath.Join(dir, "data")
	link := filepath.Join(dir, "alias")
	data := bytes.Repeat([]byte("keep me "), 1125)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	require.NoError(t, os.Link(path, link))

	for _, embed := range []bool{true, false} {
		for _, out := range []string{path, link} {
			opts := testOptions("encrypt", protocol.CBC)
			opts.embedIV = embed
			if !embed {
				opts.params.IV = hex.EncodeToString(bytes.Repeat([]byte{5}, 16))
			}
			opts.in, opts.out = path, out

			err := run(context.Background(), svc, opts, nil, nil)
			require.ErrorIs(t, err, symmetric.ErrSameFile)
			var serr *symmetric.Error
			require.True(t, errors.As(err, &serr))
			require.Equal(t, symmetric.KindConfig, serr.Kind)

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, data, got)
		}
	}
}

func TestFailureRemovesOutput(t *testing.T) {
	svc := testService()
	dir := t.TempDir()
	in := filepath.Join(dir, "short")
	out := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(in, []byte{1, 2, 3}, 0o644))

	opts := testOptions("decrypt", protocol.CBC)
	opts.in, opts.out = in, out
	require.Error(t, run(context.Background(), svc, opts, nil, nil))
	require.NoFileExists(t, out)
}

func TestRunRejectsBadOptions(t *testing.T) {
	svc := testService()

	opts := testOptions("compress", protocol.CBC)
	require.ErrorIs(t, run(context.Background(), svc, opts, nil, nil), cipher.ErrUnknownOperation)

	opts = testOptions("encrypt", protocol.CBC)
	opts.params.Key = ""
	require.ErrorIs(t, run(context.Background(), svc, opts, nil, nil), errNoKey)

	opts = testOptions("encrypt", "XTS")
	require.ErrorIs(t, run(context.Background(), svc, opts, nil, nil), modes.ErrUnknownKind)
}
