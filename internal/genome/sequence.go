package genome

import "errors"

var ErrEmptySequence = errors.New("value sequence is empty")

// DataPoint is one entry of a value sequence. Source is empty for raw inputs
// and holds the producing gene id for computed values.
type DataPoint struct {
	Source string  `json:"source,omitempty"`
	Value  float64 `json:"value"`
}

// Sequence is the append-only value stream consumed by an organism for one
// experiment tick.
type Sequence struct {
	Points []DataPoint `json:"points"`
}

func NewSequence(values ...float64) *Sequence {
	seq := &Sequence{Points: make([]DataPoint, 0, len(values))}
	for _, v := range values {
		seq.Points = append(seq.Points, DataPoint{Value: v})
	}
	return seq
}

func (s *Sequence) Len() int {
	return len(s.Points)
}

func (s *Sequence) Append(source string, value float64) {
	s.Points = append(s.Points, DataPoint{Source: source, Value: value})
}

// ValueAt resolves index modulo the current length, so -1 is the most recent
// value and len+1 wraps to the second one.
func (s *Sequence) ValueAt(index int) (float64, error) {
	n := len(s.Points)
	if n == 0 {
		return 0, ErrEmptySequence
	}
	return s.Points[((index%n)+n)%n].Value, nil
}

// Last returns the most recently appended value.
func (s *Sequence) Last() (float64, error) {
	return s.ValueAt(-1)
}

func (s *Sequence) Clone() *Sequence {
	if s == nil {
		return nil
	}
	return &Sequence{Points: append([]DataPoint(nil), s.Points...)}
}
