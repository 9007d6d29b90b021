package mtproto

import "testing"

func TestIsMigrateError(t *testing.T) {
	cases := []struct {
		message string
		wantDC  int32
		wantOk  bool
	}{
		{"PHONE_MIGRATE_2", 2, true},
		{"NETWORK_MIGRATE_5", 5, true},
		{"USER_MIGRATE_1", 1, true},
		{"FILE_MIGRATE_4", 4, true},
		{"PEER_ID_INVALID", 0, false},
		{"FLOOD_WAIT_10", 0, false},
	}
	for _, c := range cases {
		dcID, ok := IsMigrateError(c.message)
		if ok != c.wantOk || dcID != c.wantDC {
			t.Errorf("IsMigrateError(%q) = (%d, %v), want (%d, %v)", c.message, dcID, ok, c.wantDC, c.wantOk)
		}
	}
}

func TestNewBadMessageError(t *testing.T) {
	err := NewBadMessageError(48)
	bme, ok := AsBadMessageError(err)
	if !ok {
		t.Fatal("expected err to be (or wrap) a *BadMessageError")
	}
	if bme.Code != 48 {
		t.Fatalf("expected code 48, got %d", bme.Code)
	}
}

func TestBulkSendError_ReportsFailureCount(t *testing.T) {
	err := &BulkSendError{Errs: []error{nil, NewRPCError(400, "PEER_ID_INVALID", "x"), nil}}
	got := err.Error()
	want := "bulk send: 1/3 requests failed"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
