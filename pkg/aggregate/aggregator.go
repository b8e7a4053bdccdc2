// Package aggregate collects the first observed state for a fixed set
// of entities from an unordered push stream and signals completion
// once every expected entity has reported.
package aggregate

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/nodelink-protocol/nodelink-go/pkg/entity"
)

// ErrTimeout indicates the collection deadline elapsed before every
// expected entity reported.
var ErrTimeout = errors.New("state collection timed out")

// CameraImagePlaceholder replaces camera image payloads in results so
// displaying them stays readable.
const CameraImagePlaceholder = "<elided>"

// Result is one collected first state.
type Result struct {
	// Key identifies the entity.
	Key uint32

	// Kind is the entity kind the state was decoded as.
	Kind entity.Kind

	// Value is the state rendered for display. Camera images are
	// replaced by CameraImagePlaceholder.
	Value string

	// State is the decoded state as received.
	State entity.State
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTimeout bounds the collection. Without it the aggregator waits
// indefinitely, which on a node with a never-reporting entity means
// forever.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		a.timeout = d
	}
}

// Aggregator tracks first-seen states until the number of distinct
// keys observed reaches the expected count.
//
// Observe is safe to call from a stream receive loop; it never blocks.
// Done fires exactly once, when the count is reached (or the optional
// timeout elapses). Every distinct key counts, listed or not; the
// stream is trusted to deliver the keys that were enumerated.
type Aggregator struct {
	mu       sync.Mutex
	expected map[uint32]struct{}
	seen     map[uint32]Result
	err      error

	done     chan struct{}
	doneOnce sync.Once

	timeout time.Duration
	timer   *time.Timer
}

// New creates an aggregator expecting a first state for every given
// key. Duplicate keys count once. With an empty expected set the
// aggregator is complete immediately.
func New(expectedKeys []uint32, opts ...Option) *Aggregator {
	a := &Aggregator{
		expected: make(map[uint32]struct{}, len(expectedKeys)),
		seen:     make(map[uint32]Result, len(expectedKeys)),
		done:     make(chan struct{}),
	}
	for _, key := range expectedKeys {
		a.expected[key] = struct{}{}
	}
	for _, opt := range opts {
		opt(a)
	}

	if len(a.expected) == 0 {
		a.doneOnce.Do(func() { close(a.done) })
		return a
	}
	if a.timeout > 0 {
		a.timer = time.AfterFunc(a.timeout, a.expire)
	}
	return a
}

// Observe records a state. Repeat states for an already-seen key are
// ignored. Large camera image payloads are replaced with the sentinel
// placeholder before storage. Returns true when the state was recorded
// as a first observation.
func (a *Aggregator) Observe(state entity.State) bool {
	state = elide(state)
	key := state.EntityKey()

	a.mu.Lock()
	if _, dup := a.seen[key]; dup {
		a.mu.Unlock()
		return false
	}
	a.seen[key] = Result{
		Key:   key,
		Kind:  state.EntityKind(),
		Value: render(state),
		State: state,
	}
	complete := len(a.seen) == len(a.expected)
	a.mu.Unlock()

	if complete {
		if a.timer != nil {
			a.timer.Stop()
		}
		a.doneOnce.Do(func() { close(a.done) })
	}
	return true
}

func (a *Aggregator) expire() {
	a.mu.Lock()
	if len(a.seen) < len(a.expected) {
		a.err = ErrTimeout
	}
	a.mu.Unlock()
	a.doneOnce.Do(func() { close(a.done) })
}

// Done returns a channel closed once collection finishes, either
// complete or expired. Check Err after it fires.
func (a *Aggregator) Done() <-chan struct{} {
	return a.done
}

// Complete reports whether the expected count of distinct keys has
// been observed.
func (a *Aggregator) Complete() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seen) >= len(a.expected)
}

// Err returns ErrTimeout when the deadline elapsed before completion,
// nil otherwise.
func (a *Aggregator) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Missing returns the expected keys that have not reported, sorted.
func (a *Aggregator) Missing() []uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	missing := make([]uint32, 0, len(a.expected)-len(a.seen))
	for key := range a.expected {
		if _, ok := a.seen[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// Results returns the collected first states sorted by key, so output
// is deterministic regardless of stream order.
func (a *Aggregator) Results() []Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	results := make([]Result, 0, len(a.seen))
	for _, r := range a.seen {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results
}

// elide replaces camera image bytes with the sentinel so stored
// results stay reproducible and light to log.
func elide(state entity.State) entity.State {
	if cam, ok := state.(entity.CameraState); ok {
		cam.Image = []byte(CameraImagePlaceholder)
		return cam
	}
	return state
}

// render produces the display value.
func render(state entity.State) string {
	if state.EntityKind() == entity.KindCamera {
		return CameraImagePlaceholder
	}
	return state.String()
}
