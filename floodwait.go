package mtproto

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// floodGate tracks FLOOD_WAIT/SLOWMODE_WAIT cooldowns so repeated calls
// under the same key block on a
// single shared timer instead of each independently discovering the same
// rpc_error and hammering the DC again the moment it fires. The
// singleflight group coalesces concurrent waiters on the same key into one
// timer goroutine, the way a cache-stampede guard coalesces duplicate
// fetches.
type floodGate struct {
	group singleflight.Group

	mu      sync.Mutex
	waitUntil map[string]time.Time
}

func newFloodGate() *floodGate {
	return &floodGate{waitUntil: make(map[string]time.Time)}
}

// note records a cooldown for key in the gate's single waitUntil table.
// Flood and slow-mode waits share that table; SendSyncChecked keys both by
// the request's Go type name, so slow-mode waits are not scoped per chat.
func (g *floodGate) note(key string, wait time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	until := time.Now().Add(wait)
	if cur, ok := g.waitUntil[key]; !ok || until.After(cur) {
		g.waitUntil[key] = until
	}
}

// wait blocks until key's cooldown (if any) has elapsed, or ctx-less
// immediate return if there is none. Concurrent callers for the same key
// share one sleep via singleflight.
func (g *floodGate) wait(key string) {
	g.mu.Lock()
	until, ok := g.waitUntil[key]
	g.mu.Unlock()
	if !ok {
		return
	}
	remaining := time.Until(until)
	if remaining <= 0 {
		return
	}
	g.group.Do(key, func() (interface{}, error) {
		time.Sleep(remaining)
		g.mu.Lock()
		delete(g.waitUntil, key)
		g.mu.Unlock()
		return nil, nil
	})
}

// asFloodWait inspects an error returned from a request, and if it carries a
// FLOOD_WAIT/SLOWMODE_WAIT rpc_error, records the cooldown in the gate and
// reports true so the caller knows to retry after waiting.
func (g *floodGate) asFloodWait(key string, err error) bool {
	rpcErr, ok := AsRPCError(err)
	if !ok {
		return false
	}
	seconds, _, ok := IsFloodError(rpcErr.Message)
	if !ok {
		return false
	}
	g.note(key, time.Duration(seconds)*time.Second)
	return true
}
