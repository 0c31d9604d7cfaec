package testutil

import "sync"

// Call is one recorded store call.
type Call struct {
	Op  string
	Arg any
}

// CallLog records store calls in the order they were made.
//
// Thread-safety: all methods are safe for concurrent use.
type CallLog struct {
	mu    sync.Mutex
	calls []Call
}

// Record appends a call.
func (l *CallLog) Record(op string, arg any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, Call{Op: op, Arg: arg})
}

// Count returns how many calls of op were recorded.
func (l *CallLog) Count(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Ops returns the recorded operation names in order.
func (l *CallLog) Ops() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ops := make([]string, len(l.calls))
	for i, c := range l.calls {
		ops[i] = c.Op
	}
	return ops
}

// Args returns the arguments of every call of op, in order.
func (l *CallLog) Args(op string) []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	var args []any
	for _, c := range l.calls {
		if c.Op == op {
			args = append(args, c.Arg)
		}
	}
	return args
}

// Reset forgets every call.
func (l *CallLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}
