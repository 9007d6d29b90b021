package mtproto

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"time"
)

// makeAuthKey runs the auth-key exchange over the freshly dialed, still
// unencrypted connection and installs the resulting key, clock offset,
// and initial salt into the session. Called from Connect the same place
// Connect calls it, before the send/read goroutines
// start (the protocol's rules: the exchange owns the connection exclusively while
// it runs).
func (m *MTProto) makeAuthKey() error {
	sessionID := m.session.sessionId

	send := func(payload []byte) error {
		env := plainEnvelope(sessionID, payload)
		return m.codec.writeFrame(m.conn, env)
	}
	recv := func() ([]byte, error) {
		frame, err := m.codec.readFrame(m.conn)
		if err != nil {
			return nil, err
		}
		return stripPlainEnvelope(frame)
	}

	start := time.Now()
	key, timeOffset, initialSalt, err := exchangeAuthKey(m.rsaKeyring, send, recv)
	authKeyExchangeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	m.session.AuthKey = key.Key
	m.session.AuthKeyHash = key.KeyID
	m.session.ServerSalt = initialSalt
	m.idClock.timeOffset = timeOffset
	return nil
}

// plainEnvelope wraps a handshake payload in MTProto's unencrypted message
// format: 8 zero bytes (auth_key_id, always zero before a key exists), an
// 8-byte msg_id, a 4-byte length, then the payload — per the protocol's rules's
// "plaintext transport" edge case.
func plainEnvelope(sessionID int64, payload []byte) []byte {
	out := make([]byte, 0, 20+len(payload))
	out = append(out, make([]byte, 8)...) // auth_key_id = 0
	var msgID [8]byte
	binary.LittleEndian.PutUint64(msgID[:], uint64(plainMsgID()))
	out = append(out, msgID[:]...)
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(payload)))
	out = append(out, length[:]...)
	out = append(out, payload...)
	return out
}

func plainMsgID() int64 {
	now := time.Now().UnixNano()
	sec := now / int64(time.Second)
	nsec := now % int64(time.Second)
	id := (sec << 32) | ((nsec / 1000) << 2)
	return id &^ 3
}

func stripPlainEnvelope(frame []byte) ([]byte, error) {
	if len(frame) < 20 {
		return nil, NewSecurityError("plaintext envelope too short")
	}
	for _, b := range frame[:8] {
		if b != 0 {
			return nil, NewSecurityError("plaintext envelope: non-zero auth_key_id")
		}
	}
	length := binary.LittleEndian.Uint32(frame[16:20])
	if int(length) != len(frame)-20 {
		return nil, NewSecurityError("plaintext envelope: length mismatch")
	}
	return frame[20:], nil
}

// prepareForSend assigns pkt a msg_id/seq_no and registers it in msgsByID
// so responses and acks can find it, per the protocol's rules
// (sender/receiver state machine). A packet arriving with msgID already
// set (a resend after bad_server_salt, a reconnect replay, or a
// pre-chained invokeAfterMsg link) keeps its existing
// msg_id/seq_no instead of being assigned fresh ones — the server
// deduplicates resends by id, and a chained message needs its
// predecessor's real id to have been decided before it is itself
// transmitted. Resends after bad_msg_notification or new_session_created
// arrive with msgID reset to 0 and are assigned fresh ids here.
func (m *MTProto) prepareForSend(pkt *packetToSend) {
	if pkt.msgID == 0 {
		pkt.msgID = m.idClock.next()
		pkt.seqNo = m.seqGen.next(contentRelatedConstructor(pkt.msg))
	}
	pkt.needAck = contentRelatedConstructor(pkt.msg)

	if pkt.resp != nil || pkt.needAck {
		m.mutex.Lock()
		m.msgsByID[pkt.msgID] = pkt
		m.mutex.Unlock()
		pendingMessages.Set(float64(len(m.msgsByID)))
	}

	messagesSent.WithLabelValues(fmt.Sprintf("%v", pkt.needAck)).Inc()
}

// writeEncrypted encodes, encrypts, and transmits a single already-prepared
// message under the given msg_id/seq_no.
func (m *MTProto) writeEncrypted(msgID int64, seqNo int32, msg TL) error {
	body := NewEncodeBuf(256)
	if err := encodeTL(body, msg); err != nil {
		return err
	}

	authKey := &AuthKey{Key: m.session.AuthKey, KeyID: m.session.AuthKeyHash}
	encrypted, err := encryptPacket(authKey, m.session.sessionId, m.session.ServerSalt, msgID, seqNo, body.Bytes())
	if err != nil {
		return err
	}
	return m.codec.writeFrame(m.conn, encrypted)
}

// send encrypts and transmits one outgoing packet standalone.
func (m *MTProto) send(pkt *packetToSend) error {
	m.prepareForSend(pkt)
	return m.writeEncrypted(pkt.msgID, pkt.seqNo, pkt.msg)
}

// sendContainer batches multiple simultaneously-ready packets into one
// outgoing msg_container, per the protocol's rules: each inner message
// still gets its own msg_id/seq_no and its own msgsByID entry, exactly as
// if it had been sent standalone. The container itself is never
// registered in msgsByID, so the "container only leaves pending once an
// inner message is acknowledged" invariant holds vacuously — there is
// nothing container-level to remove.
func (m *MTProto) sendContainer(packets []*packetToSend) error {
	if len(packets) == 1 {
		return m.send(packets[0])
	}

	items := make([]TL_MT_message, len(packets))
	for i, pkt := range packets {
		m.prepareForSend(pkt)
		items[i] = TL_MT_message{MsgID: pkt.msgID, SeqNo: pkt.seqNo, Data: pkt.msg}
	}

	container := &packetToSend{msg: TL_msg_container{Items: items}}
	m.prepareForSend(container)
	for _, pkt := range packets {
		pkt.containerMsgID = container.msgID
	}
	return m.writeEncrypted(container.msgID, container.seqNo, container.msg)
}

// maxContainerBatch bounds how many ready packets sendRoutine folds into a
// single outgoing msg_container.
const maxContainerBatch = 32

// drainReadyPackets collects first plus whatever else is already sitting
// on queue, without blocking, up to max total — letting sendRoutine batch
// simultaneously ready messages into one container instead of one frame
// per message, per the protocol's rules.
func drainReadyPackets(first *packetToSend, queue chan *packetToSend, max int) []*packetToSend {
	packets := []*packetToSend{first}
	for len(packets) < max {
		select {
		case pkt := <-queue:
			packets = append(packets, pkt)
		default:
			return packets
		}
	}
	return packets
}

// read receives and decrypts the next packet, updating m.msgId/m.seqNo
// (consumed by readRoutine to drive process()) before returning the
// decoded TL value.
func (m *MTProto) read() (TL, error) {
	frame, err := m.codec.readFrame(m.conn)
	if err != nil {
		return nil, err
	}
	authKey := &AuthKey{Key: m.session.AuthKey, KeyID: m.session.AuthKeyHash}
	_, _, msgID, seqNo, body, err := unpackMessage(authKey, m.session.sessionId, frame)
	if err != nil {
		return nil, err
	}
	m.msgId = msgID
	m.seqNo = seqNo

	d := NewDecodeBuf(body)
	obj := d.Object()
	if d.err != nil {
		return nil, NewTransportError("read", d.err)
	}
	return obj, nil
}

// encryptPacket builds the MTProto 2.0 plaintext envelope (salt,
// session_id, msg_id, seq_no, length, body, random padding) and encrypts
// it with the client-side (offset-0) key derivation, per the protocol's rules
func encryptPacket(key *AuthKey, sessionID, salt int64, msgID int64, seqNo int32, body []byte) ([]byte, error) {
	e := NewEncodeBuf(32 + len(body) + 32)
	e.Long(salt)
	e.Long(sessionID)
	e.Long(msgID)
	e.Int(seqNo)
	e.Int(int32(len(body)))
	e.Bytes_(body)
	data := e.Bytes()

	padLen := 12 + rand.Intn(8)*4
	for (len(data)+padLen)%16 != 0 {
		padLen++
	}
	padding := make([]byte, padLen)
	_, _ = rand.Read(padding)
	dataWithPadding := append(data, padding...)

	msgKey := msgKeyFromPlain(key.Key, dataWithPadding)
	aesKey, aesIV := calcKey(key.Key, msgKey, true)
	encrypted := encryptIGE(dataWithPadding, aesKey, aesIV)

	out := make([]byte, 0, 24+len(encrypted))
	out = append(out, key.KeyID...)
	out = append(out, msgKey...)
	out = append(out, encrypted...)
	return out, nil
}
