// Package counters keeps the per-operation request/response tallies of the
// OCPI client.
package counters

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Value is the live counter pair of one operation. Requests are counted when a
// call starts and again when it fails before reaching the transport; responses
// are counted once per transport exchange.
type Value struct {
	requestsOK     atomic.Uint64
	requestsError  atomic.Uint64
	responsesOK    atomic.Uint64
	responsesError atomic.Uint64
}

// Snapshot is a point-in-time copy of a Value. Each field is read atomically;
// the four fields are not read as one unit.
type Snapshot struct {
	RequestsOK     uint64 `json:"requests_ok"`
	RequestsError  uint64 `json:"requests_error"`
	ResponsesOK    uint64 `json:"responses_ok"`
	ResponsesError uint64 `json:"responses_error"`
}

func (v *Value) snapshot() Snapshot {
	return Snapshot{
		RequestsOK:     v.requestsOK.Load(),
		RequestsError:  v.requestsError.Load(),
		ResponsesOK:    v.responsesOK.Load(),
		ResponsesError: v.responsesError.Load(),
	}
}

// Registry maps operation names to counters. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	values map[string]*Value
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{values: make(map[string]*Value)}
}

func (r *Registry) value(op string) *Value {
	r.mu.RLock()
	v, ok := r.values[op]
	r.mu.RUnlock()
	if ok {
		return v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok = r.values[op]; ok {
		return v
	}
	v = &Value{}
	r.values[op] = v
	return v
}

// Register creates the counters of op up front so they are reported as zero
// before the first call.
func (r *Registry) Register(ops ...string) {
	for _, op := range ops {
		r.value(op)
	}
}

func (r *Registry) RequestOK(op string)     { r.value(op).requestsOK.Add(1) }
func (r *Registry) RequestError(op string)  { r.value(op).requestsError.Add(1) }
func (r *Registry) ResponseOK(op string)    { r.value(op).responsesOK.Add(1) }
func (r *Registry) ResponseError(op string) { r.value(op).responsesError.Add(1) }

// Snapshot returns the counters of op; unknown operations read as zero.
func (r *Registry) Snapshot(op string) Snapshot {
	r.mu.RLock()
	v, ok := r.values[op]
	r.mu.RUnlock()
	if !ok {
		return Snapshot{}
	}
	return v.snapshot()
}

// Operations lists the known operation names in lexical order.
func (r *Registry) Operations() []string {
	r.mu.RLock()
	ops := make([]string, 0, len(r.values))
	for op := range r.values {
		ops = append(ops, op)
	}
	r.mu.RUnlock()
	sort.Strings(ops)
	return ops
}

// All snapshots every known operation.
func (r *Registry) All() map[string]Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Snapshot, len(r.values))
	for op, v := range r.values {
		out[op] = v.snapshot()
	}
	return out
}
