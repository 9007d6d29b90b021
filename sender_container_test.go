package mtproto

import (
	"bytes"
	"net"
	"sync"
	"testing"
	"time"
)

// fakeConn is a minimal net.Conn backed by a bytes.Buffer, enough for
// sendContainer/send to write encrypted frames into during a test without
// touching the network.
type fakeConn struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *fakeConn) Read(b []byte) (int, error)  { return 0, net.ErrClosed }
func (c *fakeConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(b)
}
func (c *fakeConn) Close() error                       { return nil }
func (c *fakeConn) LocalAddr() net.Addr                { return nil }
func (c *fakeConn) RemoteAddr() net.Addr               { return nil }
func (c *fakeConn) SetDeadline(t time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func newWireTestMTProto() *MTProto {
	m := newTestMTProto()
	m.conn = &fakeConn{}
	m.codec = abridgedCodec{}
	m.session.AuthKey = randomBytes(256)
	m.session.AuthKeyHash = randomBytes(8)
	m.session.ServerSalt = 1
	return m
}

func TestSendContainer_SinglePacket_SendsStandalone(t *testing.T) {
	m := newWireTestMTProto()
	pkt := newPacket(TL_ping{PingID: 1}, nil)

	if err := m.sendContainer([]*packetToSend{pkt}); err != nil {
		t.Fatalf("sendContainer failed: %v", err)
	}
	if pkt.msgID == 0 {
		t.Fatal("expected msgID to be assigned")
	}
	if pkt.containerMsgID != 0 {
		t.Fatal("a standalone send should not report a container msg_id")
	}
}

func TestSendContainer_BatchesMultiplePackets(t *testing.T) {
	m := newWireTestMTProto()
	a := newPacket(TL_ping{PingID: 1}, nil)
	b := newPacket(TL_ping{PingID: 2}, nil)

	if err := m.sendContainer([]*packetToSend{a, b}); err != nil {
		t.Fatalf("sendContainer failed: %v", err)
	}

	if a.msgID == 0 || b.msgID == 0 {
		t.Fatal("expected both packets to be assigned msg_ids")
	}
	if a.msgID == b.msgID {
		t.Fatal("expected distinct msg_ids for each item")
	}
	if a.containerMsgID == 0 || a.containerMsgID != b.containerMsgID {
		t.Fatal("expected both packets to report the same container msg_id")
	}
	if _, ok := m.msgsByID[a.containerMsgID]; ok {
		t.Fatal("the container itself must never be registered in msgsByID")
	}
}

func TestDrainReadyPackets_StopsAtQueueEmpty(t *testing.T) {
	queue := make(chan *packetToSend, 4)
	second := newPacket(TL_ping{PingID: 2}, nil)
	queue <- second

	first := newPacket(TL_ping{PingID: 1}, nil)
	got := drainReadyPackets(first, queue, 8)

	if len(got) != 2 {
		t.Fatalf("expected 2 ready packets, got %d", len(got))
	}
	if got[0] != first || got[1] != second {
		t.Fatal("expected first, then whatever was already queued, in order")
	}
}

func TestSendBulk_Ordered_ChainsViaInvokeAfterMsg(t *testing.T) {
	m := newTestMTProto()

	resps := m.SendBulk([]TL{TL_ping{PingID: 1}, TL_ping{PingID: 2}, TL_ping{PingID: 3}}, true)
	if len(resps) != 3 {
		t.Fatalf("expected 3 response channels, got %d", len(resps))
	}

	first := <-m.extSendQueue
	if _, ok := first.msg.(TL_ping); !ok {
		t.Fatalf("expected the first message unwrapped, got %T", first.msg)
	}
	if first.msgID == 0 {
		t.Fatal("expected the first message to have a pre-assigned msg_id")
	}

	second := <-m.extSendQueue
	chained, ok := second.msg.(TL_invokeAfterMsg)
	if !ok {
		t.Fatalf("expected the second message wrapped in invokeAfterMsg, got %T", second.msg)
	}
	if chained.MsgID != first.msgID {
		t.Fatalf("expected invokeAfterMsg to reference the first message's msg_id %d, got %d", first.msgID, chained.MsgID)
	}

	third := <-m.extSendQueue
	chained3, ok := third.msg.(TL_invokeAfterMsg)
	if !ok {
		t.Fatalf("expected the third message wrapped in invokeAfterMsg, got %T", third.msg)
	}
	if chained3.MsgID != second.msgID {
		t.Fatalf("expected invokeAfterMsg to reference the second message's msg_id %d, got %d", second.msgID, chained3.MsgID)
	}
}

func TestSendBulk_Unordered_SendsIndependentMessages(t *testing.T) {
	m := newTestMTProto()

	m.SendBulk([]TL{TL_ping{PingID: 1}, TL_ping{PingID: 2}}, false)

	for i := 0; i < 2; i++ {
		pkt := <-m.extSendQueue
		if _, ok := pkt.msg.(TL_ping); !ok {
			t.Fatalf("expected an unwrapped TL_ping, got %T", pkt.msg)
		}
		if pkt.msgID != 0 {
			t.Fatal("expected unordered sends to leave msg_id assignment to prepareForSend")
		}
	}
}

func TestDrainReadyPackets_RespectsMax(t *testing.T) {
	queue := make(chan *packetToSend, 8)
	for i := 0; i < 5; i++ {
		queue <- newPacket(TL_ping{PingID: int64(i)}, nil)
	}

	got := drainReadyPackets(newPacket(TL_ping{PingID: -1}, nil), queue, 3)
	if len(got) != 3 {
		t.Fatalf("expected drain to stop at max=3, got %d", len(got))
	}
	if len(queue) != 3 {
		t.Fatalf("expected 3 packets left on queue, got %d", len(queue))
	}
}
