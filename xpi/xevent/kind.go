package xevent

// Direction distinguishes a request from its reply; it shares the 4-bit
// kind discriminant field with a direction-specific meaning (§6.1 bit 24).
type Direction bool

const (
	Request Direction = true
	Reply   Direction = false
)

// RequestTag enumerates the request-side kind discriminants (DATA MODEL's
// "Requests:" bullet, in listed order, plus the supplemented broadcast
// discovery/heartbeat kinds appended at the end). Values share the 4-bit
// wire field with ReplyTag; Direction (header bit 24) selects which table
// to consult on decode — there is no single combined enum since that
// wouldn't fit in 4 bits.
type RequestTag uint8

const (
	TagCall RequestTag = iota
	TagRead
	TagWrite
	TagSubscribe
	TagUnsubscribe
	TagBorrow
	TagRelease
	TagGetInfo
	TagOpenStreams
	TagCloseStreams
	TagChainCall

	// TagDiscoverNodes, TagNodeInfo and TagHeartbeat are the supplemented
	// node-discovery broadcast kinds (original_source's XpiBroadcast).
	// They carry NodeSet=Broadcast and are handled by a node's heartbeat
	// loop, never by xpi/dispatch's per-resource Call/Write/Read pipeline.
	TagDiscoverNodes
	TagNodeInfo
	TagHeartbeat
)

// ReplyTag enumerates the reply-side kind discriminants (DATA MODEL's
// "Replies:" bullet, in listed order).
type ReplyTag uint8

const (
	TagCallResults ReplyTag = iota
	TagReadResults
	TagWriteResults
	TagSubscribeResults
	TagStreamUpdates
	TagInfoResults
	TagBorrowResults
	TagReleaseResults
	TagOpenStreamResults
	TagCloseStreamResults
)
