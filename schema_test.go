package mtproto

import "testing"

func TestEncodeTL_MsgContainer_RoundTrip(t *testing.T) {
	container := TL_msg_container{Items: []TL_MT_message{
		{MsgID: 111, SeqNo: 1, Data: TL_ping{PingID: 42}},
		{MsgID: 222, SeqNo: 3, Data: TL_pong{MsgID: 111, PingID: 42}},
	}}

	buf := NewEncodeBuf(64)
	if err := encodeTL(buf, container); err != nil {
		t.Fatalf("encodeTL failed: %v", err)
	}

	d := NewDecodeBuf(buf.Bytes())
	decoded := d.Object()
	if d.err != nil {
		t.Fatalf("decode failed: %v", d.err)
	}

	got, ok := decoded.(TL_msg_container)
	if !ok {
		t.Fatalf("expected TL_msg_container, got %T", decoded)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got.Items))
	}
	if got.Items[0].MsgID != 111 || got.Items[0].SeqNo != 1 {
		t.Fatalf("item 0 msg_id/seq_no mismatch: %+v", got.Items[0])
	}
	if _, ok := got.Items[0].Data.(TL_ping); !ok {
		t.Fatalf("item 0: expected TL_ping, got %T", got.Items[0].Data)
	}
	if got.Items[1].MsgID != 222 || got.Items[1].SeqNo != 3 {
		t.Fatalf("item 1 msg_id/seq_no mismatch: %+v", got.Items[1])
	}
	if pong, ok := got.Items[1].Data.(TL_pong); !ok || pong.PingID != 42 {
		t.Fatalf("item 1: expected TL_pong{PingID:42}, got %#v", got.Items[1].Data)
	}
}

func TestEncodeTL_MsgContainer_Empty(t *testing.T) {
	buf := NewEncodeBuf(16)
	if err := encodeTL(buf, TL_msg_container{}); err != nil {
		t.Fatalf("encodeTL failed: %v", err)
	}

	d := NewDecodeBuf(buf.Bytes())
	decoded := d.Object()
	if d.err != nil {
		t.Fatalf("decode failed: %v", d.err)
	}
	got, ok := decoded.(TL_msg_container)
	if !ok {
		t.Fatalf("expected TL_msg_container, got %T", decoded)
	}
	if len(got.Items) != 0 {
		t.Fatalf("expected no items, got %d", len(got.Items))
	}
}
