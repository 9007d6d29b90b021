package mtproto

import (
	"sync"
	"sync/atomic"
	"time"
)

// timeOffset is the server-minus-local clock skew (seconds), learned from
// bad_msg_notification codes 16/17 (msg_id too low/high) and folded into
// every subsequently generated msg_id, per the protocol's rules.
//
// lastMsgID guards monotonicity: each new id must exceed the
// previous one generated by this session, even if the wall clock ticks
// backwards or two ids land in the same microsecond. mu makes both safe to
// call from multiple goroutines: normally only sendRoutine calls next(),
// but ordered bulk sends pre-assign ids from the caller's own goroutine to
// chain invokeAfterMsg references before the messages are actually sent.
type msgIDClock struct {
	mu         sync.Mutex
	timeOffset int64 // seconds
	lastMsgID  int64
}

// next derives a 64-bit msg_id the way Telethon's TLMessage._next_msg_id
// does: seconds since epoch (adjusted by the learned offset) in the high
// 32 bits, sub-second fraction quantized to a multiple of 4 in the low 32
// bits, forced strictly greater than the previous value handed out.
func (c *msgIDClock) next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	sec := now/int64(time.Second) + c.timeOffset
	nsec := now % int64(time.Second)

	id := (sec << 32) | ((nsec / 1000) << 2)
	id &^= 3 // low two bits are reserved (client: 0, content-related msgs use bit 2)

	if id <= c.lastMsgID {
		id = c.lastMsgID + 4
	}
	c.lastMsgID = id
	return id
}

// updateTimeOffset folds a bad_msg_notification's implied correction into
// future msg_id generation; serverMsgID is taken from whichever message the
// server's notification referenced.
func (c *msgIDClock) updateTimeOffset(serverMsgID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().Unix()
	serverTime := serverMsgID >> 32
	c.timeOffset = serverTime - now
}

// seqCounter produces the odd/even seq_no discipline from the protocol's rules:
// content-related messages (those expecting an ack or a response) get an
// odd, strictly increasing seq_no; everything else (acks, and containers
// wrapping only non-content messages) gets the current even value without
// advancing it.
type seqCounter struct {
	value int32
}

func (c *seqCounter) next(contentRelated bool) int32 {
	if contentRelated {
		v := atomic.AddInt32(&c.value, 1)*2 - 1
		return v
	}
	return atomic.LoadInt32(&c.value) * 2
}

// bump applies a bad_msg_notification seq_no correction (codes 32/33 carry
// the delta in the same units as a content-related seq_no, i.e. double the
// underlying counter value).
func (c *seqCounter) bump(delta int32) {
	atomic.AddInt32(&c.value, delta/2)
}

// AuthKey is the 2048-bit shared secret negotiated once per DC via the
// auth-key exchange  and reused across reconnects. SessFileStore
// persists the key bytes as they are, without encrypting them.
type AuthKey struct {
	Key       []byte // 256 bytes
	KeyID     []byte // low 64 bits of sha1(Key), the protocol's rules edge case
	ServerSalt int64
}

// contentRelatedConstructor reports whether a TL value must be acked and
// carries an odd seq_no — everything except msgs_ack, msg_container,
// ping and pong
func contentRelatedConstructor(msg TL) bool {
	switch msg.(type) {
	case TL_msgs_ack, TL_msg_container, TL_ping, TL_pong:
		return false
	default:
		return true
	}
}
