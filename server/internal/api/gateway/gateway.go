// Gateway API implementation
package gateway

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/symmetric"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/helpers"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/protocol"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/services/cipher"
)

// Server represents the API gateway
type Server struct {
	addr      string
	cipherSvc *cipher.Service
	maxBody   int64
	logger    *helpers.Logger
	mu        sync.RWMutex
	sessions  map[*Session]bool
}

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// New creates a new gateway server
func New(addr string, cipherSvc *cipher.Service, maxBody int64) *Server {
	return &Server{
		addr:      addr,
		cipherSvc: cipherSvc,
		maxBody:   maxBody,
		logger:    helpers.NewLogger("gateway"),
		sessions:  make(map[*Session]bool),
	}
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	// Root endpoint - return OK for health checks
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Symmetric cipher gateway"))
	}).Methods("GET", "OPTIONS")

	router.HandleFunc("/api/algorithms", s.handleAlgorithms).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/stats", s.handleStats).Methods("GET", "OPTIONS")

	// Cipher endpoints, body in and body out
	router.HandleFunc("/api/encrypt", s.handleCipher(protocol.Encrypt)).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/decrypt", s.handleCipher(protocol.Decrypt)).Methods("POST", "OPTIONS")

	// WebSocket endpoint
	router.HandleFunc("/ws", s.handleWebSocket)

	return corsMiddleware(router)
}

// Start starts the gateway server
func (s *Server) Start() error {
	s.logger.Info("listening on " + s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

func (s *Server) handleAlgorithms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cipherSvc.Algorithms())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	active := len(s.sessions)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": active,
		"workers":  s.cipherSvc.Pool().Workers(),
	})
}

// handleCipher streams the request body through a cipher into the response.
// The response is buffered for one chunk, so failures on small bodies still
// get a proper status code.
func (s *Server) handleCipher(op protocol.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := paramsFromQuery(r.URL.Query())
		if err != nil {
			writeError(w, err)
			return
		}
		c, err := s.cipherSvc.NewContext(params)
		if err != nil {
			writeError(w, err)
			return
		}
		dir, err := cipher.Direction(op)
		if err != nil {
			writeError(w, err)
			return
		}

		body := http.MaxBytesReader(w, r.Body, s.maxBody)
		defer body.Close()

		out := &responseSink{w: w}
		cw := symmetric.NewWriter(r.Context(), bufio.NewWriterSize(out, symmetric.ChunkSize), c, dir)
		if _, err = io.Copy(cw, body); err == nil {
			err = cw.Close()
		}

		if err != nil {
			if out.started {
				// the status line is gone, all we can do is cut the response short
				s.logger.Error("stream aborted after "+strconv.FormatInt(out.n, 10)+" bytes", err)
				panic(http.ErrAbortHandler)
			}
			s.logger.Warn("request failed", string(op), err)
			writeError(w, err)
			return
		}
		out.start()
	}
}

// responseSink sends the status line with the first output byte
type responseSink struct {
	w       http.ResponseWriter
	started bool
	n       int64
}

func (s *responseSink) start() {
	if s.started {
		return
	}
	s.started = true
	s.w.Header().Set("Content-Type", "application/octet-stream")
	s.w.WriteHeader(http.StatusOK)
}

func (s *responseSink) Write(p []byte) (int, error) {
	s.start()
	n, err := s.w.Write(p)
	s.n += int64(n)
	return n, err
}

func paramsFromQuery(q url.Values) (protocol.CipherParams, error) {
	p := protocol.CipherParams{
		Algorithm:  protocol.EncryptionAlgorithm(q.Get("algorithm")),
		Mode:       protocol.EncryptionMode(q.Get("mode")),
		Padding:    protocol.PaddingMode(q.Get("padding")),
		Key:        q.Get("key"),
		Passphrase: q.Get("passphrase"),
		IV:         q.Get("iv"),
		Nonce:      q.Get("nonce"),
		Seed:       q.Get("seed"),
	}
	if v := q.Get("counter"); v != "" {
		counter, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, &symmetric.Error{Op: "params", Kind: symmetric.KindConfig, Err: fmt.Errorf("invalid counter %q", v)}
		}
		p.Counter = counter
	}
	return p, nil
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	switch symmetric.Classify(err) {
	case symmetric.KindConfig, symmetric.KindInput, symmetric.KindPadding:
		return http.StatusBadRequest
	case symmetric.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), &protocol.ErrorResponse{
		Error: err.Error(),
		Kind:  symmetric.Classify(err).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) register(sess *Session) {
	s.mu.Lock()
	s.sessions[sess] = true
	s.mu.Unlock()
}

func (s *Server) unregister(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}
