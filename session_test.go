package mtproto

import "testing"

func TestMsgIDClock_Monotonic(t *testing.T) {
	var c msgIDClock
	var last int64
	for i := 0; i < 1000; i++ {
		id := c.next()
		if id <= last {
			t.Fatalf("msg_id not strictly increasing: got %d after %d", id, last)
		}
		if id&3 != 0 {
			t.Fatalf("msg_id low two bits must be zero, got %#x", id)
		}
		last = id
	}
}

func TestMsgIDClock_UpdateTimeOffset(t *testing.T) {
	var c msgIDClock
	serverMsgID := (int64(2000000000) << 32)
	c.updateTimeOffset(serverMsgID)
	if c.timeOffset == 0 {
		t.Fatal("expected non-zero time offset after update")
	}
	id := c.next()
	if id>>32 < 1999999000 {
		t.Fatalf("expected next msg_id to reflect the learned offset, got second field %d", id>>32)
	}
}

func TestSeqCounter_OddEvenDiscipline(t *testing.T) {
	var c seqCounter

	first := c.next(true)
	if first != 1 {
		t.Fatalf("expected first content-related seq_no to be 1, got %d", first)
	}
	second := c.next(false)
	if second != 2 {
		t.Fatalf("expected non-content seq_no to be the current even value, got %d", second)
	}
	third := c.next(true)
	if third != 3 {
		t.Fatalf("expected seq_no to advance to 3, got %d", third)
	}
}

func TestSeqCounter_Bump(t *testing.T) {
	var c seqCounter
	c.next(true) // value == 1

	c.bump(64)
	if c.value != 33 {
		t.Fatalf("expected value 1+32=33 after bump(64), got %d", c.value)
	}

	c.bump(-16)
	if c.value != 25 {
		t.Fatalf("expected value 33-8=25 after bump(-16), got %d", c.value)
	}
}

func TestContentRelatedConstructor(t *testing.T) {
	cases := []struct {
		name string
		msg  TL
		want bool
	}{
		{"msgs_ack", TL_msgs_ack{}, false},
		{"msg_container", TL_msg_container{}, false},
		{"ping", TL_ping{}, false},
		{"pong", TL_pong{}, false},
		{"help_getConfig", TL_help_getConfig{}, true},
		{"raw", TL_raw{Constructor: 0x1}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := contentRelatedConstructor(c.msg); got != c.want {
				t.Errorf("contentRelatedConstructor(%s) = %v, want %v", c.name, got, c.want)
			}
		})
	}
}
