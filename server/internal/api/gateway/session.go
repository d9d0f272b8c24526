package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/symmetric"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/protocol"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/services/cipher"
)

var (
	errExpectedRequest = errors.New("first frame must be a JSON stream request")
	errUnexpectedText  = errors.New("unexpected text frame")
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Session is one WebSocket cipher stream. The first text frame configures
// it, every binary frame is transformed and echoed as binary frames, and a
// text "end" frame finalizes it.
type Session struct {
	server *Server
	conn   *websocket.Conn
	sent   int64
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade error", err)
		return
	}

	sess := &Session{server: s, conn: conn}
	s.register(sess)
	defer func() {
		s.unregister(sess)
		conn.Close()
	}()

	s.logger.Info("WebSocket session opened", r.RemoteAddr)
	if err := sess.run(r.Context()); err != nil {
		s.logger.Warn("WebSocket session failed", r.RemoteAddr, err)
		sess.sendEvent(&protocol.StreamEvent{Error: err.Error(), Kind: symmetric.Classify(err).String()})
		sess.close(websocket.CloseUnsupportedData, "cipher failure")
		return
	}
	sess.close(websocket.CloseNormalClosure, "")
	s.logger.Info("WebSocket session closed", r.RemoteAddr, sess.sent)
}

func (sess *Session) run(ctx context.Context) error {
	sess.conn.SetReadLimit(sess.server.maxBody)
	sess.conn.SetReadDeadline(time.Now().Add(protocol.ReadTimeout))

	req, err := sess.readRequest()
	if err != nil {
		return err
	}
	dir, err := cipher.Direction(req.Operation)
	if err != nil {
		return err
	}
	c, err := sess.server.cipherSvc.NewContext(req.CipherParams)
	if err != nil {
		return err
	}
	if err := sess.sendEvent(&protocol.StreamEvent{Status: "ready"}); err != nil {
		return err
	}

	w := symmetric.NewWriter(ctx, sess, c, dir)
	for {
		sess.conn.SetReadDeadline(time.Now().Add(protocol.ReadTimeout))
		mt, data, err := sess.conn.ReadMessage()
		if err != nil {
			// a client that leaves without "end" abandons the stream
			return err
		}

		switch mt {
		case websocket.BinaryMessage:
			if _, err := w.Write(data); err != nil {
				return err
			}
		case websocket.TextMessage:
			if string(data) != protocol.EndOfStream {
				return fmt.Errorf("%w: %q", errUnexpectedText, data)
			}
			if err := w.Close(); err != nil {
				return err
			}
			return sess.sendEvent(&protocol.StreamEvent{Status: "done", Bytes: sess.sent})
		}
	}
}

func (sess *Session) readRequest() (*protocol.StreamRequest, error) {
	mt, data, err := sess.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var req protocol.StreamRequest
	if mt != websocket.TextMessage || json.Unmarshal(data, &req) != nil {
		return nil, &symmetric.Error{Op: "session", Kind: symmetric.KindConfig, Err: errExpectedRequest}
	}
	return &req, nil
}

// Write sends transformed bytes as one binary frame
func (sess *Session) Write(p []byte) (int, error) {
	sess.conn.SetWriteDeadline(time.Now().Add(protocol.WriteTimeout))
	if err := sess.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	sess.sent += int64(len(p))
	return len(p), nil
}

func (sess *Session) sendEvent(ev *protocol.StreamEvent) error {
	sess.conn.SetWriteDeadline(time.Now().Add(protocol.WriteTimeout))
	return sess.conn.WriteJSON(ev)
}

func (sess *Session) close(code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	sess.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(protocol.WriteTimeout))
}
