package dispatch

// Config holds the dispatcher's tunable constants (§4.5). The zero value
// is not usable; start from DefaultConfig and override individual fields.
type Config struct {
	// ReplyMTU is the maximum byte size of one reply event.
	ReplyMTU int `json:"reply_mtu"`
	// MaxReplyBatchLen bounds how many resources one reply batch covers.
	MaxReplyBatchLen int `json:"max_reply_batch_len"`
	// MaxReplyBatches bounds how many reply events one inbound event may
	// produce before the remainder is dropped as saturation.
	MaxReplyBatches int `json:"max_reply_batches"`
	// FrameOverhead is the transport framing cost (outside the nibble
	// payload) subtracted from ReplyMTU before computing a nibble budget.
	FrameOverhead int `json:"frame_overhead"`
	// HeaderNibbles is the dispatcher's own estimate of fixed per-reply
	// overhead ahead of the result vector (header + resource-set body +
	// request id + ttl), distinct from xevent.HeaderNibbles which sizes
	// only the packed 32-bit header proper.
	HeaderNibbles int `json:"header_nibbles"`
	// TrailerNibbles is reserved for transport trailer bytes (e.g. a CRC).
	TrailerNibbles int `json:"trailer_nibbles"`
	// SpareNibbles is slack kept un-budgeted as insurance against the
	// estimate above being wrong; spec.md notes this constant is
	// empirical and should be tuned against the MTU invariant test.
	SpareNibbles int `json:"spare_nibbles"`
}

// DefaultConfig returns the tested defaults from §4.5.
func DefaultConfig() Config {
	return Config{
		ReplyMTU:         64,
		MaxReplyBatchLen: 16,
		MaxReplyBatches:  8,
		FrameOverhead:    5,
		HeaderNibbles:    10,
		TrailerNibbles:   2,
		SpareNibbles:     10,
	}
}

// BudgetNibbles is the effective per-batch nibble budget available for
// result-vector content, after subtracting framing, header, trailer and
// spare overhead from the reply MTU.
func (c Config) BudgetNibbles() int {
	return (c.ReplyMTU-c.FrameOverhead)*2 - c.HeaderNibbles - c.TrailerNibbles - c.SpareNibbles
}
