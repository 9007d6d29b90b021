package mtproto

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/ansel1/merry/v2"
	"golang.org/x/sync/semaphore"
)

const ROUTINES_COUNT = 4

var ErrNoSessionData = merry.New("no session data")

type SessionInfo struct {
	DcID        int32
	AuthKey     []byte
	AuthKeyHash []byte
	ServerSalt  int64
	Addr        string
	sessionId   int64
}

type SessionStore interface {
	Save(*SessionInfo) error
	Load(*SessionInfo) error
}

type SessNoopStore struct{}

func (s *SessNoopStore) Save(sess *SessionInfo) error { return nil }
func (s *SessNoopStore) Load(sess *SessionInfo) error { return merry.New("can not load") }

type SessFileStore struct {
	FPath string
}

func (s *SessFileStore) Save(sess *SessionInfo) (err error) {
	f, err := os.Create(s.FPath)
	if err != nil {
		return merry.Wrap(err)
	}
	defer f.Close()

	b := NewEncodeBuf(1024)
	b.StringBytes(sess.AuthKey)
	b.StringBytes(sess.AuthKeyHash)
	b.Long(sess.ServerSalt)
	b.String(sess.Addr)

	_, err = f.Write(b.buf)
	if err != nil {
		return merry.Wrap(err)
	}
	return nil
}

func (s *SessFileStore) Load(sess *SessionInfo) error {
	f, err := os.Open(s.FPath)
	if os.IsNotExist(err) {
		return ErrNoSessionData
	}
	if err != nil {
		return merry.Wrap(err)
	}
	defer f.Close()

	b := make([]byte, 1024*4)
	_, err = f.Read(b)
	if err != nil {
		return merry.Wrap(err)
	}

	d := NewDecodeBuf(b)
	sess.AuthKey = d.StringBytes()
	sess.AuthKeyHash = d.StringBytes()
	sess.ServerSalt = d.Long()
	sess.Addr = d.String()

	if d.err != nil {
		return merry.Wrap(d.err)
	}
	return nil
}

type AppConfig struct {
	AppID          int32
	AppHash        string
	AppVersion     string
	DeviceModel    string
	SystemVersion  string
	SystemLangCode string
	LangPack       string
	LangCode       string
}

type MTProto struct {
	sessionStore SessionStore
	session      *SessionInfo
	appCfg       *AppConfig
	conn         net.Conn
	dialer       netDialer
	log          Logger

	// Two queues here.
	// First (external) has limited size and contains external requests.
	// Second (internal) is unlimited. Special goroutine transfers messages
	// from external to internal queue while len(interbal) < cap(external).
	// This allows throttling (as same as single limited queue).
	// And this allow to safely (without locks) return any failed (due to
	// network probles for example) messages back to internal queue and retry later.
	extSendQueue chan *packetToSend //external
	sendQueue    chan *packetToSend //internal

	routinesStop chan struct{}
	routinesWG   sync.WaitGroup

	mutex           *sync.Mutex
	reconnSemaphore *semaphore.Weighted
	encryptionReady bool
	lastSeqNo       int32
	msgsByID        map[int64]*packetToSend
	seqNo           int32
	msgId           int64
	handleEvent     func(TL)

	dcOptions []*TL_dcOption

	rsaKeyring *rsaKeyring
	idClock    msgIDClock
	seqGen     seqCounter
	codec      frameCodec
	flood      *floodGate
}

type packetToSend struct {
	msgID   int64
	seqNo   int32
	msg     TL
	resp    chan TL
	needAck bool

	// containerMsgID is the msg_id of the outer msg_container this packet
	// was last transmitted inside, 0 if it was sent standalone. It is
	// diagnostic only: the container itself is never registered in
	// msgsByID, so there is nothing container-level to remove once an
	// inner message is acknowledged.
	containerMsgID int64
}

func newPacket(msg TL, resp chan TL) *packetToSend {
	return &packetToSend{msg: msg, resp: resp}
}

func NewMTProto(appID int32, appHash string) *MTProto {
	log := &SimpleLogHandler{}

	// getting exec directory
	var exPath string
	ex, err := os.Executable()
	if err != nil {
		Logger{log}.Error(err, "failed to get executable file path")
		exPath = "."
	} else {
		exPath = filepath.Dir(ex)
	}

	cfg := &AppConfig{
		AppID:          appID,
		AppHash:        appHash,
		AppVersion:     "0.0.1",
		DeviceModel:    "Unknown",
		SystemVersion:  runtime.GOOS + "/" + runtime.GOARCH,
		SystemLangCode: "en",
		LangPack:       "",
		LangCode:       "en",
	}
	return NewMTProtoExt(cfg, &SessFileStore{exPath + "/tg.session"}, log, nil)
}

func NewMTProtoExt(appCfg *AppConfig, sessStore SessionStore, logHandler LogHandler, session *SessionInfo) *MTProto {
	kr, err := newRSAKeyring()
	if err != nil {
		// the embedded Telegram public key is a compile-time constant;
		// a failure here means the binary itself is broken
		panic(err)
	}
	m := &MTProto{
		sessionStore: sessStore,
		session:      session,
		appCfg:       appCfg,
		log:          NewLogger(logHandler),

		extSendQueue: make(chan *packetToSend, 64),
		sendQueue:    make(chan *packetToSend, 1024),
		routinesStop: make(chan struct{}, ROUTINES_COUNT),

		msgsByID:        make(map[int64]*packetToSend),
		mutex:           &sync.Mutex{},
		reconnSemaphore: semaphore.NewWeighted(1),
		rsaKeyring:      kr,
		codec:           abridgedCodec{},
		dialer:          directDialer{},
		flood:           newFloodGate(),
	}
	go m.debugRoutine()
	return m
}

// SetProxy routes all future Connect calls through a SOCKS5 proxy instead of
// dialing the DC directly. Call before Connect/InitSessAndConnect.
func (m *MTProto) SetProxy(addr string, auth *proxyAuth) error {
	d, err := newSocks5Dialer(addr, auth)
	if err != nil {
		return merry.Wrap(err)
	}
	m.dialer = d
	return nil
}

func (m *MTProto) InitSessAndConnect() error {
	if err := m.InitSession(false); err != nil {
		return merry.Wrap(err)
	}
	if err := m.Connect(); err != nil {
		return merry.Wrap(err)
	}
	return nil
}

func (m *MTProto) InitSession(sessEncrIsReady bool) error {
	if m.session == nil {
		m.session = &SessionInfo{}
		err := m.sessionStore.Load(m.session)
		if merry.Is(err, ErrNoSessionData) { //no data
			m.session.Addr = "149.154.167.50:443" //"149.154.167.40"
			m.encryptionReady = false
		} else if err == nil { //got saved session
			m.encryptionReady = true
		} else {
			return merry.Wrap(err)
		}
	} else {
		m.encryptionReady = sessEncrIsReady
	}

	rand.Seed(time.Now().UnixNano())
	m.session.sessionId = rand.Int63()
	return nil
}

func (m *MTProto) AppConfig() *AppConfig {
	return m.appCfg
}

func (m *MTProto) LogHandler() LogHandler {
	return m.log.hnd
}

func (m *MTProto) CopySession() *SessionInfo {
	sess := *m.session
	return &sess
}

func (m *MTProto) SaveSessionLogged() {
	if err := m.sessionStore.Save(m.session); err != nil {
		m.log.Error(err, "failed to save session data")
	}
}

func (m *MTProto) DCAddr(dcID int32, ipv6 bool) (string, bool) {
	for _, o := range m.dcOptions {
		if o.ID == dcID && o.Ipv6 == ipv6 {
			return fmt.Sprintf("%s:%d", o.IpAddress, o.Port), true
		}
	}
	return "", false
}

func (m *MTProto) SetEventsHandler(handler func(TL)) {
	m.handleEvent = handler
}

func (m *MTProto) Connect() error {
	m.log.Info("connecting to DC %d (%s)...", m.session.DcID, m.session.Addr)
	var err error
	m.conn, err = m.dialer.Dial("tcp", m.session.Addr)
	if err != nil {
		return merry.Wrap(err)
	}
	_, err = m.conn.Write([]byte{0xef})
	if err != nil {
		return merry.Wrap(err)
	}

	// getting new authKey if need
	if !m.encryptionReady {
		if err = m.makeAuthKey(); err != nil {
			return merry.Wrap(err)
		}
		if err := m.sessionStore.Save(m.session); err != nil {
			return merry.Wrap(err)
		}
		m.encryptionReady = true
	}

	// starting goroutines
	m.log.Debug("connecting: starting routines...")
	m.routinesWG.Add(2)
	go m.sendRoutine()
	go m.readRoutine()

	// getting connection configs
	m.log.Debug("connecting: getting config...")
	x := m.sendSyncInternal(TL_invokeWithLayer{
		TL_Layer,
		TL_initConnection{
			m.appCfg.AppID,
			m.appCfg.DeviceModel,
			m.appCfg.SystemVersion,
			m.appCfg.AppVersion,
			m.appCfg.SystemLangCode,
			m.appCfg.LangPack,
			m.appCfg.LangCode,
			TL_help_getConfig{},
		},
	})
	if cfg, ok := x.(TL_config); ok {
		m.session.DcID = cfg.ThisDc
		for _, v := range cfg.DcOptions {
			v := v.(TL_dcOption)
			m.dcOptions = append(m.dcOptions, &v)
		}
	} else {
		return WrongRespError(x)
	}

	m.routinesWG.Add(2)
	go m.queueTransferRoutine() // straintg messages transfer from external to internal queue
	go m.pingRoutine()          // starting keepalive pinging
	m.log.Info("connected to DC %d (%s)...", m.session.DcID, m.session.Addr)
	return nil
}

// reconnectLogged retries reconnectToDc(targetDcID) until it succeeds,
// logging each failure, and guards against overlapping reconnect attempts
// with reconnSemaphore. Pass m.session.DcID to reconnect in place, or a
// different id to migrate.
func (m *MTProto) reconnectLogged(targetDcID int32) {
	m.log.Info("reconnecting...")
	if !m.reconnSemaphore.TryAcquire(1) {
		m.log.Info("reconnection already in progress, aborting")
		return
	}
	defer m.reconnSemaphore.Release(1)

	for {
		err := m.reconnectToDc(targetDcID)
		if err == nil {
			return
		}
		m.log.Error(err, "failed to reconnect")
		m.log.Info("retrying in 5 seconds")
		time.Sleep(5 * time.Second)
		// and trying to reconnect again
	}
}

func (m *MTProto) Reconnect() error {
	return m.reconnectToDc(m.session.DcID)
}

func (m *MTProto) reconnectToDc(newDcID int32) error {
	m.log.Info("reconnecting: DC %d -> %d", m.session.DcID, newDcID)
	reconnects.Inc()

	// stopping routines
	m.log.Debug("stopping routines...")
	for i := 0; i < ROUTINES_COUNT; i++ {
		m.routinesStop <- struct{}{}
	}

	// closing connection, readRoutine will then fail to read() and will handle stop signal
	if m.conn != nil {
		if err := m.conn.Close(); err != nil && !IsClosedConnErr(err) {
			return merry.Wrap(err)
		}
	}

	// waiting for all routines to stop
	m.log.Debug("waiting for routines...")
	m.routinesWG.Wait()
	m.log.Debug("done stopping routines...")

	// removing unused stop signals (if any)
	for empty := false; !empty; {
		select {
		case <-m.routinesStop:
		default:
			empty = true
		}
	}

	// saving IDs of messages from msgsByID[],
	// some of them may not have been sent, so we'll resend them after reconnection
	pendingIDs := make([]int64, 0, len(m.msgsByID))
	for id := range m.msgsByID {
		pendingIDs = append(pendingIDs, id)
	}
	m.log.Debug("found %d pending packet(s)", len(pendingIDs))

	// renewing connection
	if newDcID != m.session.DcID {
		m.encryptionReady = false //TODO: export auth here (if authed)
		//https://github.com/sochix/TLSharp/blob/0940d3d982e9c22adac96b6c81a435403802899a/TLSharp.Core/TelegramClient.cs#L84
	}
	newDcAddr, ok := m.DCAddr(newDcID, false)
	if !ok {
		return merry.Errorf("wrong DC number: %d", newDcID)
	}
	m.session.DcID = newDcID
	m.session.Addr = newDcAddr
	if err := m.Connect(); err != nil {
		return merry.Wrap(err)
	}

	// Checking pending messages.
	// 1) some of them may have been answered, so they will not be in msgsByID[]
	// 2) some of them may have been received by TG, but response has not reached us yet
	// 3) some of them may be actually lost and must be resend
	// Here we resend messages both from (2) and (3). But since msgID and seqNo
	// are preserved, TG will ignore doubles from (2). And (3) will finally reach TG.
	if len(pendingIDs) > 0 {
		var packets []*packetToSend
		m.mutex.Lock()
		for _, id := range pendingIDs {
			packet, ok := m.msgsByID[id]
			if ok {
				packets = append(packets, packet)
			}
		}
		m.pushPendingPacketsUnlocked(packets)
		m.mutex.Unlock()
	}

	m.log.Info("reconnected to DC %d (%s)", m.session.DcID, m.session.Addr)
	return nil
}

func (m *MTProto) Send(msg TL) chan TL {
	resp := make(chan TL, 1)
	m.extSendQueue <- newPacket(msg, resp)
	return resp
}

func (m *MTProto) SendSync(msg TL) TL {
	resp := make(chan TL, 1)
	m.extSendQueue <- newPacket(msg, resp)
	return <-resp
}

// SendBulk enqueues a batch of requests at once. With ordered=false they
// are independent and may be reordered, or containerized together
// opportunistically by sendRoutine whenever they happen to be ready at the
// same time, per the protocol's rules. With ordered=true, every request
// after the first is wrapped in invokeAfterMsg referencing the previous
// request's msg_id, so the server only begins executing it once the
// previous one has started; this requires assigning msg_ids synchronously
// here, in the caller's goroutine, rather than waiting for sendRoutine to
// dequeue each packet.
func (m *MTProto) SendBulk(msgs []TL, ordered bool) []chan TL {
	resps := make([]chan TL, len(msgs))
	var prevMsgID int64
	for i, msg := range msgs {
		resp := make(chan TL, 1)
		resps[i] = resp

		sendMsg := msg
		if ordered && i > 0 {
			sendMsg = TL_invokeAfterMsg{MsgID: prevMsgID, Query: msg}
		}
		pkt := newPacket(sendMsg, resp)
		if ordered {
			pkt.msgID = m.idClock.next()
			pkt.seqNo = m.seqGen.next(contentRelatedConstructor(sendMsg))
			prevMsgID = pkt.msgID
		}
		m.extSendQueue <- pkt
	}
	return resps
}

// SendBulkSync sends msgs via SendBulk and waits for every reply. If any
// reply is itself an rpc_error, it returns a *BulkSendError alongside the
// full (ok-and-error-mixed) results slice, in request order.
func (m *MTProto) SendBulkSync(msgs []TL, ordered bool) ([]TL, error) {
	resps := m.SendBulk(msgs, ordered)
	results := make([]TL, len(resps))
	errs := make([]error, len(resps))
	anyErr := false
	for i, resp := range resps {
		results[i] = <-resp
		if rpcErr, ok := results[i].(TL_rpc_error); ok {
			errs[i] = NewRPCError(rpcErr.ErrorCode, rpcErr.ErrorMessage, fmt.Sprintf("%T", msgs[i]))
			anyErr = true
		}
	}
	if !anyErr {
		return results, nil
	}

	resultsIface := make([]interface{}, len(results))
	for i, r := range results {
		resultsIface[i] = r
	}
	return results, NewBulkSendError(errs, resultsIface, msgs)
}

// maxFloodWaitRetries bounds how many times SendSyncChecked will sleep out
// a FLOOD_WAIT/SLOWMODE_WAIT and retry in place before giving up and
// surfacing the error to the caller.
const maxFloodWaitRetries = 5

// SendSyncChecked wraps SendSync with flood-wait cooperation: it blocks
// until any previously observed FLOOD_WAIT/SLOWMODE_WAIT cooldown for this
// constructor has elapsed, then sends. If the reply is itself a fresh
// rpc_error carrying a wait, the cooldown is recorded and this call sleeps
// it out and retries in place — up to maxFloodWaitRetries times — rather
// than surfacing the error to the caller. Any other rpc_error, or a flood
// wait that outlasts the retry budget, returns an *RPCError that callers
// can inspect with AsRPCError/IsFloodError.
func (m *MTProto) SendSyncChecked(msg TL) (TL, error) {
	key := fmt.Sprintf("%T", msg)

	for attempt := 0; ; attempt++ {
		m.flood.wait(key)

		resp := m.SendSync(msg)
		rpcErr, ok := resp.(TL_rpc_error)
		if !ok {
			return resp, nil
		}

		err := NewRPCError(rpcErr.ErrorCode, rpcErr.ErrorMessage, key)
		isFlood := m.flood.asFloodWait(key, err)
		if !isFlood || attempt >= maxFloodWaitRetries {
			return nil, err
		}

		seconds, _, _ := IsFloodError(rpcErr.ErrorMessage)
		if seconds < 1 {
			seconds = 1
		}
		time.Sleep(time.Duration(seconds) * time.Second)
	}
}

func (m *MTProto) sendSyncInternal(msg TL) TL {
	resp := make(chan TL, 1)
	m.sendQueue <- newPacket(msg, resp)
	return <-resp
}

func (m *MTProto) popPendingPacketsUnlocked() []*packetToSend {
	packets := make([]*packetToSend, 0, len(m.msgsByID))
	msgs := make([]TL, 0)
	for id, packet := range m.msgsByID {
		delete(m.msgsByID, id)
		packets = append(packets, packet)
		msgs = append(msgs, packet.msg)
	}
	m.log.Debug("popped %d pending packet(s): %#v", len(packets), msgs)
	return packets
}
func (m *MTProto) popPendingPackets() []*packetToSend {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.popPendingPacketsUnlocked()
}
func (m *MTProto) pushPendingPacketsUnlocked(packets []*packetToSend) {
	for _, packet := range packets {
		m.sendQueue <- packet
	}
	m.log.Debug("pushed %d pending packet(s)", len(packets))
}
func (m *MTProto) pushPendingPackets(packets []*packetToSend) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.pushPendingPacketsUnlocked(packets)
}
func (m *MTProto) resendPendingPackets() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	packets := m.popPendingPacketsUnlocked()
	m.pushPendingPacketsUnlocked(packets)
}

func (m *MTProto) pingRoutine() {
	defer func() {
		m.log.Debug("pingRoutine done")
		m.routinesWG.Done()
	}()
	for {
		select {
		case <-m.routinesStop:
			return
		case <-time.After(60 * time.Second):
			m.sendQueue <- newPacket(TL_ping{0xCADACADA}, nil)
		}
	}
}

func (m *MTProto) sendRoutine() {
	defer func() {
		m.log.Debug("sendRoutine done")
		m.routinesWG.Done()
	}()
	for {
		select {
		case <-m.routinesStop:
			return
		case x := <-m.sendQueue:
			packets := drainReadyPackets(x, m.sendQueue, maxContainerBatch)
			err := m.sendContainer(packets)
			if IsClosedConnErr(err) {
				continue //closed connection, should receive stop signal now
			}
			if err != nil {
				m.log.Error(err, "sending filed")
				go m.reconnectLogged(m.session.DcID)
				return
			}
		}
	}
}

func (m *MTProto) readRoutine() {
	defer func() {
		m.log.Debug("readRoutine done")
		m.routinesWG.Done()
	}()
	for {
		select {
		case <-m.routinesStop:
			return
		default:
		}

		data, err := m.read()
		if IsClosedConnErr(err) {
			continue //closed connection, should receive stop signal now
		}
		if errors.Is(err, ErrUnknownConstructor) {
			m.log.Warn("skipping message with unknown constructor: %v", err)
			continue
		}
		if err != nil {
			m.log.Error(err, "reading failed")
			go m.reconnectLogged(m.session.DcID)
			return
		}
		m.process(m.msgId, m.seqNo, data, true)
	}
}

func (m *MTProto) queueTransferRoutine() {
	defer func() {
		m.log.Debug("queueTransferRoutine done")
		m.routinesWG.Done()
	}()
	for {
		if len(m.sendQueue) < cap(m.extSendQueue) {
			select {
			case <-m.routinesStop:
				return
			case msg := <-m.extSendQueue:
				m.sendQueue <- msg
			}
		} else {
			select {
			case <-m.routinesStop:
				return
			default:
				time.Sleep(10000 * time.Microsecond)
			}
		}
	}
}

// Periodically checks messages in "msgsByID" and warns if they stay there too long
func (m *MTProto) debugRoutine() {
	for {
		m.mutex.Lock()
		count := 0
		for id := range m.msgsByID {
			delta := time.Now().Unix() - (id >> 32)
			if delta > 5 {
				m.log.Warn("msgsByID: #%d: is here for %ds", id, delta)
			}
			count++
		}
		m.mutex.Unlock()
		m.log.Debug("msgsByID: %d total", count)
		time.Sleep(5 * time.Second)
	}
}

func (m *MTProto) clearPacketData(msgID int64, response TL) {
	m.mutex.Lock()
	packet, ok := m.msgsByID[msgID]
	if ok {
		if packet.resp == nil {
			m.log.Warn("second response to message #%d %#v", msgID, packet.msg)
		} else {
			packet.resp <- response
			close(packet.resp)
			packet.resp = nil
		}
		delete(m.msgsByID, msgID)
	}
	m.mutex.Unlock()
}

// handleBadMsgNotification implements the per-code recovery the protocol's
// rules mandates for bad_msg_notification. Codes 16/17 mean our msg_id fell
// outside the server's acceptance window because of clock skew: the offset
// is recomputed from the rejected id and the request is resent under a
// freshly generated one. Codes 32/33 mean our seq_no drifted out of the
// server's window and must be nudged by a fixed delta before resending.
// Every other code is fatal to the specific request.
func (m *MTProto) handleBadMsgNotification(data TL_bad_msg_notification) {
	switch data.ErrorCode {
	case 16, 17:
		m.idClock.updateTimeOffset(data.BadMsgID)
		m.resendWithFreshID(data.BadMsgID)

	case 32:
		m.seqGen.bump(64)
		m.resendWithFreshID(data.BadMsgID)

	case 33:
		m.seqGen.bump(-16)
		m.resendWithFreshID(data.BadMsgID)

	default:
		m.log.Error(NewBadMessageError(data.ErrorCode), "bad_msg_notification: request #%d rejected", data.BadMsgID)
		m.clearPacketData(data.BadMsgID, data)
	}
}

// resendWithFreshID requeues the packet pending under badMsgID, resetting
// its msg_id/seq_no to zero so send() assigns it new ones once dequeued —
// used after a bad_msg_notification has corrected whatever clock or
// sequence state made the original ids unacceptable.
func (m *MTProto) resendWithFreshID(badMsgID int64) {
	m.mutex.Lock()
	packet, ok := m.msgsByID[badMsgID]
	if ok {
		delete(m.msgsByID, badMsgID)
	}
	m.mutex.Unlock()

	if !ok {
		return
	}
	packet.msgID = 0
	packet.seqNo = 0
	m.sendQueue <- packet
}

// resendLostPackets implements new_session_created's recovery contract:
// everything the client sent before firstMsgID belongs to a session the
// server has already discarded, so those requests are requeued under fresh
// ids rather than left to wait forever on a reply that will never arrive.
func (m *MTProto) resendLostPackets(firstMsgID int64) {
	m.mutex.Lock()
	var lost []*packetToSend
	for id, packet := range m.msgsByID {
		if id < firstMsgID {
			delete(m.msgsByID, id)
			lost = append(lost, packet)
		}
	}
	m.mutex.Unlock()

	for _, packet := range lost {
		packet.msgID = 0
		packet.seqNo = 0
		m.sendQueue <- packet
	}
}

// migrateAndResend implements DC migration: reconnectToDc tears down the
// connection, rebinds to dcID, discards the stale auth key when dcID
// differs from the current one, and reruns the exchange; once reconnected,
// the request that triggered the migration (if it was still pending) is
// resent under a fresh id.
func (m *MTProto) migrateAndResend(dcID int32, packet *packetToSend, found bool) {
	m.log.Info("migrating to DC %d", dcID)
	m.reconnectLogged(dcID)
	if found {
		packet.msgID = 0
		packet.seqNo = 0
		m.sendQueue <- packet
	}
}

func (m *MTProto) process(msgId int64, seqNo int32, dataTL TL, mayPassToHandler bool) {
	messagesReceived.WithLabelValues(fmt.Sprintf("%T", dataTL)).Inc()

	switch data := dataTL.(type) {
	case TL_msg_container:
		for _, v := range data.Items {
			m.process(v.MsgID, v.SeqNo, v.Data, true)
		}

	case TL_bad_server_salt:
		m.session.ServerSalt = data.NewServerSalt
		m.SaveSessionLogged()
		m.resendPendingPackets()

	case TL_bad_msg_notification:
		m.handleBadMsgNotification(data)

	case TL_msgs_state_info:
		m.clearPacketData(data.ReqMsgID, data)

	case TL_new_session_created:
		m.session.ServerSalt = data.ServerSalt
		m.SaveSessionLogged()
		m.resendLostPackets(data.FirstMsgID)

	case TL_ping:
		m.sendQueue <- newPacket(TL_pong{msgId, data.PingID}, nil)

	case TL_pong:
		m.clearPacketData(data.MsgID, data)

	case TL_msgs_ack:
		m.mutex.Lock()
		for _, id := range data.MsgIds {
			packet, ok := m.msgsByID[id]
			if ok {
				packet.needAck = false
				// if request does not wait for response, removing it
				if m.msgsByID[id].resp == nil {
					delete(m.msgsByID, id)
				}
			}
		}
		m.mutex.Unlock()

	case TL_rpc_result:
		migrated := false
		if rpcErr, ok := data.obj.(TL_rpc_error); ok {
			rpcErrors.WithLabelValues(fmt.Sprintf("%d", rpcErr.ErrorCode)).Inc()
			if dcID, ok := IsMigrateError(rpcErr.ErrorMessage); ok {
				migrated = true
				m.mutex.Lock()
				packet, found := m.msgsByID[data.req_msg_id]
				delete(m.msgsByID, data.req_msg_id)
				m.mutex.Unlock()
				go m.migrateAndResend(dcID, packet, found)
			}
		}
		if !migrated {
			m.process(msgId, 0, data.obj, false)
			m.clearPacketData(data.req_msg_id, data.obj)
		}

	default:
		if mayPassToHandler && m.handleEvent != nil {
			go m.handleEvent(dataTL)
		}
	}

	// should acknowledge odd ids
	if (seqNo & 1) == 1 {
		m.sendQueue <- newPacket(TL_msgs_ack{[]int64{msgId}}, nil)
	}
}
