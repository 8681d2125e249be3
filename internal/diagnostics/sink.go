package diagnostics

import "sync"

// Sink is the single shared append-only collector described in spec.md §9
// ("Diagnostics sink"). Every phase pushes into the same sink; order across
// phases is not semantic, and Dedupe is run once after collection finishes.
//
// A Sink is safe for concurrent use: multiple queries running against an
// immutable snapshot (spec.md §5) may push into the same Sink from
// different goroutines.
type Sink struct {
	mu   sync.Mutex
	diag []*Diagnostic
}

// NewSink creates an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Push appends a diagnostic. Nil diagnostics are ignored so call sites can
// push the result of a possibly-nil-returning check unconditionally.
func (s *Sink) Push(d *Diagnostic) {
	if d == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diag = append(s.diag, d)
}

// PushAll appends a batch of diagnostics.
func (s *Sink) PushAll(ds []*Diagnostic) {
	for _, d := range ds {
		s.Push(d)
	}
}

// All returns a snapshot copy of the diagnostics collected so far, in
// insertion order.
func (s *Sink) All() []*Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Diagnostic, len(s.diag))
	copy(out, s.diag)
	return out
}

// HasErrors reports whether any collected diagnostic is error-severity.
func (s *Sink) HasErrors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.diag {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Dedupe removes duplicates (same code, span start position, and message), keeping
// the first occurrence, and returns the deduplicated slice. It does not
// mutate the Sink; callers merge results from multiple sinks (e.g. one per
// module) and dedupe once at the end, per spec.md §9.
func Dedupe(diags []*Diagnostic) []*Diagnostic {
	seen := make(map[string]bool, len(diags))
	out := make([]*Diagnostic, 0, len(diags))
	for _, d := range diags {
		key := d.Code + "|" + d.Span.String() + "|" + d.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

// Merge combines diagnostics from several sinks (e.g. one per compiled
// module) into a single deduplicated, order-stable slice.
func Merge(sinks ...*Sink) []*Diagnostic {
	var all []*Diagnostic
	for _, s := range sinks {
		all = append(all, s.All()...)
	}
	return Dedupe(all)
}
