package backend

import "encoding/json"

// Result is the outcome of one model query. It is either a success carrying
// the reply content (plus optional backend-specific reasoning annotations) or
// the absent marker: a zero Result with OK false. There is no partial
// success. Results are values and are never mutated after creation.
type Result struct {
	OK        bool
	Content   string
	Reasoning json.RawMessage // opaque chain-of-thought metadata, if the backend produces it
}

// Success creates a successful Result with the given reply content.
func Success(content string) Result {
	return Result{OK: true, Content: content}
}

// Absent is the no-result marker returned for every failure path.
func Absent() Result {
	return Result{}
}

// Completion pairs a model identifier with its result. The streaming engine
// emits completions in finish order.
type Completion struct {
	Model  string
	Result Result
}

// ResultSet maps model identifiers to results while preserving the order in
// which entries were inserted. For exhaustive and streaming collection the
// key set equals the requested model set; for quorum/timeout collection it is
// the subset that had completed by the time the call returned.
type ResultSet struct {
	order   []string
	results map[string]Result
}

// NewResultSet creates an empty ResultSet.
func NewResultSet() *ResultSet {
	return &ResultSet{results: make(map[string]Result)}
}

// Set records the result for a model. First insertion fixes the model's
// position in iteration order; setting an existing model overwrites in place.
func (s *ResultSet) Set(model string, r Result) {
	if _, ok := s.results[model]; !ok {
		s.order = append(s.order, model)
	}
	s.results[model] = r
}

// Get returns the result for a model and whether the model has an entry.
func (s *ResultSet) Get(model string) (Result, bool) {
	r, ok := s.results[model]
	return r, ok
}

// Models returns the model identifiers in insertion order.
func (s *ResultSet) Models() []string {
	cp := make([]string, len(s.order))
	copy(cp, s.order)
	return cp
}

// Len returns the number of entries.
func (s *ResultSet) Len() int {
	return len(s.order)
}

// Succeeded returns the models with a successful result, in insertion order.
func (s *ResultSet) Succeeded() []string {
	var out []string
	for _, m := range s.order {
		if s.results[m].OK {
			out = append(out, m)
		}
	}
	return out
}

// Each iterates over entries in insertion order. If fn returns false,
// iteration stops early.
func (s *ResultSet) Each(fn func(model string, r Result) bool) {
	for _, m := range s.order {
		if !fn(m, s.results[m]) {
			return
		}
	}
}
