package modes

// Params selects what a mode needs at Init. The set of implementations is
// closed: NoParams, IVParams, CounterParams and RandomDeltaParams.
type Params interface {
	isParams()
}

// NoParams is the parameter set of ECB
type NoParams struct{}

// IVParams carries the initialization vector of CBC, CFB, OFB and PCBC.
// The IV must be exactly one block long.
type IVParams struct {
	IV []byte
}

// CounterParams configures CTR. The nonce fills the first half of every
// counter block, the counter the second half.
type CounterParams struct {
	Nonce   []byte
	Counter int64
}

// RandomDeltaParams configures RandomDelta: a counter mode whose step
// between consecutive blocks is derived from Seed instead of being 1.
type RandomDeltaParams struct {
	Nonce   []byte
	Counter int64
	Seed    []byte
}

func (NoParams) isParams()          {}
func (IVParams) isParams()          {}
func (CounterParams) isParams()     {}
func (RandomDeltaParams) isParams() {}
