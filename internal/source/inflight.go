package source

import "sync"

// flightGroup deduplicates concurrent downloads of the same date.
// A custom type instead of golang.org/x/sync/singleflight so that the
// winning call runs under its own context, not the first caller's.
type flightGroup struct {
	mu    sync.Mutex
	calls map[string]*flightCall
}

type flightCall struct {
	wg  sync.WaitGroup
	val []byte
	err error
}

// Do executes fn once per key; concurrent callers for the same key block
// and share the result. The bool reports whether this caller ran fn.
func (g *flightGroup) Do(key string, fn func() ([]byte, error)) ([]byte, error, bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*flightCall)
	}

	if call, ok := g.calls[key]; ok {
		g.mu.Unlock()
		call.wg.Wait()
		return call.val, call.err, false
	}

	call := &flightCall{}
	call.wg.Add(1)
	g.calls[key] = call
	g.mu.Unlock()

	call.val, call.err = fn()
	call.wg.Done()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()

	return call.val, call.err, true
}
