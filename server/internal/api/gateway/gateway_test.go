package gateway

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/config"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/modes"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/padding"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/symmetric"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/protocol"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/services/cipher"
)

var (
	testKey = []byte("0123456789ABCDEF0123456789ABCDEF")
	testIV  = []byte("fedcba9876543210")
)

func newTestServer(t *testing.T, maxBody int64) *httptest.Server {
	t.Helper()
	cfg := config.Load()
	cfg.Cipher.Workers = 2
	srv := httptest.NewServer(New("", cipher.NewService(cfg), maxBody).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func cipherQuery(mode string) url.Values {
	q := url.Values{}
	q.Set("algorithm", "RC6")
	q.Set("mode", mode)
	q.Set("padding", "PKCS7")
	q.Set("key", hex.EncodeToString(testKey))
	q.Set("iv", hex.EncodeToString(testIV))
	return q
}

func oneShot(t *testing.T, plaintext []byte) []byte {
	t.Helper()
	c, err := symmetric.New(symmetric.Config{
		Algorithm: "RC6",
		Mode:      modes.CBC,
		Padding:   padding.PKCS7,
		Key:       testKey,
		IV:        testIV,
	}, nil)
	require.NoError(t, err)
	out, err := c.Encrypt(context.Background(), plaintext)
	require.NoError(t, err)
	return out
}

func post(t *testing.T, srv *httptest.Server, path string, q url.Values, body []byte) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(srv.URL+path+"?"+q.Encode(), "application/octet-stream", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealthAndAlgorithms(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/algorithms")
	require.NoError(t, err)
	defer resp.Body.Close()
	var algs protocol.AlgorithmsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&algs))
	require.Contains(t, algs.Algorithms, "RC6")
	require.Contains(t, algs.Modes, "RANDOM_DELTA")
	require.Contains(t, algs.Paddings, "ISO_10126")
}

func TestPreflight(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/encrypt", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestEncryptDecryptEndpoints(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	plaintext := bytes.Repeat([]byte("gateway "), 20000)

	resp, ciphertext := post(t, srv, "/api/encrypt", cipherQuery("CBC"), plaintext)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	require.Equal(t, oneShot(t, plaintext), ciphertext)

	resp, decrypted := post(t, srv, "/api/decrypt", cipherQuery("CBC"), ciphertext)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, plaintext, decrypted)
}

func TestPassphraseEndpoints(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	q := url.Values{}
	q.Set("mode", "CTR")
	q.Set("nonce", "0102030405060708")
	q.Set("passphrase", "open sesame")
	q.Set("counter", "42")

	resp, ciphertext := post(t, srv, "/api/encrypt", q, []byte("short message"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, ciphertext, 16)

	resp, decrypted := post(t, srv, "/api/decrypt", q, ciphertext)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "short message", string(decrypted))
}

func TestCipherEndpointErrors(t *testing.T) {
	srv := newTestServer(t, 1024)

	tests := []struct {
		name   string
		path   string
		query  url.Values
		body   []byte
		status int
		kind   string
	}{
		{"short IV", "/api/encrypt", func() url.Values {
			q := cipherQuery("CBC")
			q.Set("iv", hex.EncodeToString(testIV[:15]))
			return q
		}(), []byte("x"), http.StatusBadRequest, "config"},
		{"bad counter", "/api/encrypt", func() url.Values {
			q := cipherQuery("CTR")
			q.Set("counter", "-x")
			return q
		}(), []byte("x"), http.StatusBadRequest, "config"},
		{"unknown mode", "/api/encrypt", cipherQuery("GCM"), []byte("x"), http.StatusBadRequest, "config"},
		{"unaligned ciphertext", "/api/decrypt", cipherQuery("CBC"), make([]byte, 20), http.StatusBadRequest, "input"},
		{"body too large", "/api/encrypt", cipherQuery("CBC"), make([]byte, 4096), http.StatusRequestEntityTooLarge, "io"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv, tt.path, tt.query, tt.body)
			require.Equal(t, tt.status, resp.StatusCode)

			var errResp protocol.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			require.NotEmpty(t, errResp.Error)
			require.Equal(t, tt.kind, errResp.Kind)
		})
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// stream runs one WebSocket session and returns the output and final event
func stream(t *testing.T, conn *websocket.Conn, req protocol.StreamRequest, chunks [][]byte) ([]byte, protocol.StreamEvent) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))

	var ready protocol.StreamEvent
	require.NoError(t, conn.ReadJSON(&ready))
	require.Equal(t, "ready", ready.Status, ready.Error)

	for _, chunk := range chunks {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, chunk))
	}
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(protocol.EndOfStream)))

	var out []byte
	for {
		mt, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if mt == websocket.BinaryMessage {
			out = append(out, data...)
			continue
		}
		var ev protocol.StreamEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return out, ev
	}
}

func split(data []byte, size int) [][]byte {
	var chunks [][]byte
	for len(data) > 0 {
		n := min(size, len(data))
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}

func TestWebSocketStream(t *testing.T) {
	srv := newTestServer(t, 1<<20)
	plaintext := bytes.Repeat([]byte("websocket stream "), 3000)
	params := protocol.CipherParams{
		Algorithm: protocol.RC6,
		Mode:      protocol.CBC,
		Padding:   protocol.PKCS7,
		Key:       hex.EncodeToString(testKey),
		IV:        hex.EncodeToString(testIV),
	}

	ciphertext, done := stream(t, dial(t, srv), protocol.StreamRequest{Operation: protocol.Encrypt, CipherParams: params}, split(plaintext, 1000))
	require.Equal(t, "done", done.Status)
	require.Equal(t, int64(len(ciphertext)), done.Bytes)
	require.Equal(t, oneShot(t, plaintext), ciphertext)

	decrypted, done := stream(t, dial(t, srv), protocol.StreamRequest{Operation: protocol.Decrypt, CipherParams: params}, split(ciphertext, 777))
	require.Equal(t, "done", done.Status)
	require.Equal(t, plaintext, decrypted)
}

func TestWebSocketErrors(t *testing.T) {
	srv := newTestServer(t, 1<<20)

	conn := dial(t, srv)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var ev protocol.StreamEvent
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "config", ev.Kind)
	require.NotEmpty(t, ev.Error)

	conn = dial(t, srv)
	require.NoError(t, conn.WriteJSON(protocol.StreamRequest{
		Operation:    "sign",
		CipherParams: protocol.CipherParams{Key: hex.EncodeToString(testKey)},
	}))
	require.NoError(t, conn.ReadJSON(&ev))
	require.Contains(t, ev.Error, "unknown operation")

	// a ciphertext that is not block aligned fails at finalization
	conn = dial(t, srv)
	require.NoError(t, conn.WriteJSON(protocol.StreamRequest{
		Operation: protocol.Decrypt,
		CipherParams: protocol.CipherParams{
			Mode: protocol.ECB,
			Key:  hex.EncodeToString(testKey),
		},
	}))
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "ready", ev.Status)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, make([]byte, 20)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(protocol.EndOfStream)))
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "input", ev.Kind)
}
