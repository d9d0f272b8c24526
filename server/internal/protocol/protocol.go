package protocol

import (
	"time"
)

// EncryptionAlgorithm type for available algorithms
type EncryptionAlgorithm string

const (
	RC6 EncryptionAlgorithm = "RC6"
	AES EncryptionAlgorithm = "AES"
)

// EncryptionMode type for block cipher modes
type EncryptionMode string

const (
	ECB         EncryptionMode = "ECB"
	CBC         EncryptionMode = "CBC"
	PCBC        EncryptionMode = "PCBC"
	CFB         EncryptionMode = "CFB"
	OFB         EncryptionMode = "OFB"
	CTR         EncryptionMode = "CTR"
	RandomDelta EncryptionMode = "RANDOM_DELTA"
)

// PaddingMode type for padding schemes
type PaddingMode string

const (
	Zeros    PaddingMode = "ZEROS"
	PKCS7    PaddingMode = "PKCS7"
	ANSI     PaddingMode = "ANSI_X923"
	ISO10126 PaddingMode = "ISO_10126"
)

// Operation is the direction of a cipher request
type Operation string

const (
	Encrypt Operation = "encrypt"
	Decrypt Operation = "decrypt"
)

// EndOfStream is the text frame a WebSocket client sends after its last chunk
const EndOfStream = "end"

// WebSocket timeouts
const (
	ReadTimeout  = time.Hour
	WriteTimeout = 10 * time.Second
)

// CipherParams selects and keys a cipher. Binary values are hex encoded.
// Either Key or Passphrase must be set.
type CipherParams struct {
	Algorithm  EncryptionAlgorithm `json:"algorithm,omitempty"`
	Mode       EncryptionMode      `json:"mode,omitempty"`
	Padding    PaddingMode         `json:"padding,omitempty"`
	Key        string              `json:"key,omitempty"`
	Passphrase string              `json:"passphrase,omitempty"`
	IV         string              `json:"iv,omitempty"`
	Nonce      string              `json:"nonce,omitempty"`
	Counter    int64               `json:"counter,omitempty"`
	Seed       string              `json:"seed,omitempty"`
}

// StreamRequest is the first frame of a WebSocket cipher session
type StreamRequest struct {
	Operation Operation `json:"operation"`
	CipherParams
}

// StreamEvent is a text frame sent by the server during a WebSocket session
type StreamEvent struct {
	Status string `json:"status,omitempty"` // "ready", "done"
	Bytes  int64  `json:"bytes,omitempty"`  // output bytes sent so far
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"` // error category
}

// AlgorithmsResponse lists everything a request may select
type AlgorithmsResponse struct {
	Algorithms []string `json:"algorithms"`
	Modes      []string `json:"modes"`
	Paddings   []string `json:"paddings"`
}

// ErrorResponse is the JSON body of a failed HTTP request
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
