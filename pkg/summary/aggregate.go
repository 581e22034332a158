// Package summary holds the per-title attribute aggregate and its lossy
// text encoding.
package summary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Reserved labels.
const (
	// BlankLabel counts release records that carry no attributes at all.
	BlankLabel = "blank"

	// InternetLabel is the label reported separately by Decode.
	InternetLabel = "internet"
)

// Normalize converts raw attribute text into a Label.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Pair is a single label count.
type Pair struct {
	Label string
	Count int
}

// Aggregate is an ordered mapping from label to occurrence count.
// Labels keep the order in which they were first seen. The zero value is
// the empty aggregate. Aggregates are not modified after construction.
type Aggregate struct {
	labels []string
	counts map[string]int
}

// FromPairs builds an aggregate from pairs in the given order. Repeated
// labels are summed.
func FromPairs(pairs ...Pair) Aggregate {
	var t Tally
	for _, p := range pairs {
		t.AddN(p.Label, p.Count)
	}
	return t.Aggregate()
}

// Len returns the number of distinct labels.
func (a Aggregate) Len() int {
	return len(a.labels)
}

// IsEmpty reports whether the aggregate has no labels.
func (a Aggregate) IsEmpty() bool {
	return len(a.labels) == 0
}

// Count returns the count for label, or 0.
func (a Aggregate) Count(label string) int {
	return a.counts[label]
}

// Labels returns the labels in discovery order.
func (a Aggregate) Labels() []string {
	out := make([]string, len(a.labels))
	copy(out, a.labels)
	return out
}

// Pairs returns label counts in discovery order.
func (a Aggregate) Pairs() []Pair {
	out := make([]Pair, 0, len(a.labels))
	for _, l := range a.labels {
		out = append(out, Pair{Label: l, Count: a.counts[l]})
	}
	return out
}

// Total returns the sum of all counts.
func (a Aggregate) Total() int {
	total := 0
	for _, l := range a.labels {
		total += a.counts[l]
	}
	return total
}

// Equal reports whether both aggregates hold the same labels, counts and order.
func (a Aggregate) Equal(b Aggregate) bool {
	if len(a.labels) != len(b.labels) {
		return false
	}
	for i, l := range a.labels {
		if b.labels[i] != l || a.counts[l] != b.counts[l] {
			return false
		}
	}
	return true
}

// String renders the aggregate as its EncodedSummary.
func (a Aggregate) String() string {
	return Encode(a)
}

// MarshalJSON writes the aggregate as a JSON object with keys in discovery order.
func (a Aggregate) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range a.labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", a.counts[l])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of label counts, keeping key order.
func (a *Aggregate) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*a = Aggregate{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("aggregate: expected object, got %v", tok)
	}

	var t Tally
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("aggregate: expected label, got %v", keyTok)
		}

		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("aggregate: label %q: %w", label, err)
		}
		count, err := n.Int64()
		if err != nil || count < 0 {
			return fmt.Errorf("aggregate: label %q: invalid count %q", label, n.String())
		}
		t.AddN(label, int(count))
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*a = t.Aggregate()
	return nil
}

// Tally accumulates label counts. The zero value is ready to use.
// A Tally is not safe for concurrent use.
type Tally struct {
	labels []string
	counts map[string]int
}

// Add increments label by one.
func (t *Tally) Add(label string) {
	t.AddN(label, 1)
}

// AddN increments label by n.
func (t *Tally) AddN(label string, n int) {
	if t.counts == nil {
		t.counts = make(map[string]int)
	}
	if _, seen := t.counts[label]; !seen {
		t.labels = append(t.labels, label)
	}
	t.counts[label] += n
}

// Len returns the number of distinct labels counted so far.
func (t *Tally) Len() int {
	return len(t.labels)
}

// Aggregate returns a snapshot of the current counts. Later calls to Add do
// not affect returned aggregates.
func (t *Tally) Aggregate() Aggregate {
	if len(t.labels) == 0 {
		return Aggregate{}
	}
	labels := make([]string, len(t.labels))
	copy(labels, t.labels)
	counts := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		counts[k] = v
	}
	return Aggregate{labels: labels, counts: counts}
}
