package classification

import (
	"context"
	"fmt"
	"sync"

	"github.com/ripesense/ripesense/pkg/observability/logging"
	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// SessionState is the lifecycle state of a classification session
type SessionState string

const (
	StateUnloaded    SessionState = "unloaded"
	StateLoading     SessionState = "loading"
	StateReady       SessionState = "ready"
	StateClassifying SessionState = "classifying"
	StateError       SessionState = "error"
)

// Snapshot is a point-in-time view of a session, published to observers on
// every transition.
type Snapshot struct {
	Kind   taxonomy.ProduceKind
	State  SessionState
	Result *ClassificationResult
	Err    error
}

// SessionObserver receives session snapshots. Observers run synchronously
// on the transitioning goroutine and must return quickly.
type SessionObserver func(Snapshot)

// Session is the stateful orchestrator callers interact with. It owns the
// state machine over one backend: Unloaded -> Loading -> Ready <->
// Classifying, with Error reachable from Loading, and Loading reachable
// again from Ready and Error.
//
// Sessions are single-flight: at most one in-flight Load or Classify at a
// time, owned by the caller. Overlapping operations are a contract
// violation and are not queued, coalesced, or locked out internally. The
// internal mutex only keeps snapshot reads consistent; it is never held
// across a backend call.
//
// A failed Classify stores the error and returns to Ready: a bad image
// never invalidates a loaded model. A failed Load parks the session in
// Error until the next Load.
type Session struct {
	backend Backend

	mu        sync.Mutex
	state     SessionState
	kind      taxonomy.ProduceKind
	result    *ClassificationResult
	lastErr   error
	observers map[int]SessionObserver
	nextObsID int
}

// NewSession creates an unloaded session over a backend
func NewSession(backend Backend) *Session {
	return &Session{
		backend:   backend,
		state:     StateUnloaded,
		observers: make(map[int]SessionObserver),
	}
}

// Load moves the session to Loading and asks the backend to acquire the
// kind. Success reaches Ready and clears any stored error; failure reaches
// Error holding the reason. Switching kinds discards the previous result.
func (s *Session) Load(ctx context.Context, kind taxonomy.ProduceKind) error {
	s.mu.Lock()
	if s.kind != kind {
		s.result = nil
	}
	s.kind = kind
	s.state = StateLoading
	s.mu.Unlock()
	s.notify()
	logging.Debugf("Session loading %q", kind)

	err := s.backend.Load(ctx, kind)

	s.mu.Lock()
	if err != nil {
		s.state = StateError
		s.lastErr = err
	} else {
		s.state = StateReady
		s.lastErr = nil
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		logging.Errorf("Session load failed for %q: %v", kind, err)
		return err
	}
	logging.Debugf("Session ready for %q", kind)
	return nil
}

// Classify runs one image through the backend. Valid only from Ready; any
// other state fails immediately with ErrNotReady and stores nothing. On
// backend failure the session returns to Ready holding the error, with the
// previous result discarded, so the caller can retry at once.
func (s *Session) Classify(ctx context.Context, image []byte) (*ClassificationResult, error) {
	s.mu.Lock()
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: session state is %s", ErrNotReady, state)
	}
	s.state = StateClassifying
	s.mu.Unlock()
	s.notify()

	result, err := s.backend.Classify(ctx, image)

	s.mu.Lock()
	s.state = StateReady
	if err != nil {
		s.result = nil
		s.lastErr = err
	} else {
		s.result = result
		s.lastErr = nil
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		logging.Warnf("Classification failed for %q: %v", s.Kind(), err)
		return nil, err
	}
	return result, nil
}

// Clear discards the stored result and error without changing the load
// state.
func (s *Session) Clear() {
	s.mu.Lock()
	s.result = nil
	s.lastErr = nil
	s.mu.Unlock()
	s.notify()
}

// State returns the current session state
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Kind returns the produce kind of the most recent Load
func (s *Session) Kind() taxonomy.ProduceKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// Result returns the stored result of the last successful Classify, nil
// when there is none.
func (s *Session) Result() *ClassificationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// LastError returns the stored load or classify failure, nil when clear
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot returns a consistent view of the session
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Kind:   s.kind,
		State:  s.state,
		Result: s.result,
		Err:    s.lastErr,
	}
}

// Subscribe registers an observer and returns its unsubscribe function.
// The observer immediately receives the current snapshot.
func (s *Session) Subscribe(observer SessionObserver) func() {
	s.mu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = observer
	s.mu.Unlock()

	observer(s.Snapshot())
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// notify publishes the current snapshot to all observers outside the lock
func (s *Session) notify() {
	s.mu.Lock()
	observers := make([]SessionObserver, 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	snapshot := Snapshot{
		Kind:   s.kind,
		State:  s.state,
		Result: s.result,
		Err:    s.lastErr,
	}
	s.mu.Unlock()

	for _, obs := range observers {
		obs(snapshot)
	}
}
