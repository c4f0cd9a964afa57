package genome

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrOperation      = errors.New("gene operation failed")
	ErrDivisionByZero = fmt.Errorf("%w: division by zero", ErrOperation)
)

// Kind tags the closed set of gene variants.
type Kind string

const (
	KindAdd      Kind = "add"
	KindSubtract Kind = "subtract"
	KindMultiply Kind = "multiply"
	KindDivide   Kind = "divide"
	KindSine     Kind = "sine"
)

// Kinds lists every gene variant in a stable order.
var Kinds = []Kind{KindAdd, KindSubtract, KindMultiply, KindDivide, KindSine}

// ConstantCount is the number of operation constants a kind consumes.
func (k Kind) ConstantCount() int {
	switch k {
	case KindAdd, KindSubtract, KindMultiply, KindDivide:
		return 1
	default:
		return 0
	}
}

// SourceCount is the number of source values a kind reads.
func (k Kind) SourceCount() int {
	return 1
}

func (k Kind) Valid() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Gene is an atomic numeric transform. It reads Sources from the value
// sequence, applies Kind with Constants and appends the result.
type Gene struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Sources   []int     `json:"sources"`
	Constants []float64 `json:"constants,omitempty"`
}

// NewGene builds a gene reading the most recent value.
func NewGene(id string, kind Kind, constants ...float64) *Gene {
	return &Gene{
		ID:        id,
		Kind:      kind,
		Sources:   []int{-1},
		Constants: append([]float64(nil), constants...),
	}
}

func (g *Gene) Apply(seq *Sequence) error {
	if len(g.Sources) < g.Kind.SourceCount() {
		return fmt.Errorf("%w: gene %s (%s) needs %d sources, has %d", ErrOperation, g.ID, g.Kind, g.Kind.SourceCount(), len(g.Sources))
	}
	if len(g.Constants) < g.Kind.ConstantCount() {
		return fmt.Errorf("%w: gene %s (%s) needs %d constants, has %d", ErrOperation, g.ID, g.Kind, g.Kind.ConstantCount(), len(g.Constants))
	}

	value, err := seq.ValueAt(g.Sources[0])
	if err != nil {
		return fmt.Errorf("gene %s: %w", g.ID, err)
	}

	var result float64
	switch g.Kind {
	case KindAdd:
		result = value + g.Constants[0]
	case KindSubtract:
		result = value - g.Constants[0]
	case KindMultiply:
		result = value * g.Constants[0]
	case KindDivide:
		if g.Constants[0] == 0 {
			return fmt.Errorf("gene %s: %w", g.ID, ErrDivisionByZero)
		}
		result = value / g.Constants[0]
	case KindSine:
		result = math.Sin(value)
	default:
		return fmt.Errorf("%w: unknown gene kind %q", ErrOperation, g.Kind)
	}

	seq.Append(g.ID, result)
	return nil
}

func (g *Gene) Clone() *Gene {
	if g == nil {
		return nil
	}
	return &Gene{
		ID:        g.ID,
		Kind:      g.Kind,
		Sources:   cloneSlice(g.Sources),
		Constants: cloneSlice(g.Constants),
	}
}

// cloneSlice copies src, keeping nil and empty distinct.
func cloneSlice[T any](src []T) []T {
	if src == nil {
		return nil
	}
	out := make([]T, len(src))
	copy(out, src)
	return out
}

func (g *Gene) String() string {
	return fmt.Sprintf("%s[sources=%v constants=%v]", g.Kind, g.Sources, g.Constants)
}
