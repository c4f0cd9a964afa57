package genome

import (
	"errors"
	"math"
	"testing"
)

func TestSequenceValueAtWrapsNegativeAndOverflow(t *testing.T) {
	seq := NewSequence(1, 2, 3)
	cases := map[int]float64{-1: 3, -3: 1, -4: 3, 0: 1, 3: 1, 4: 2}
	for index, want := range cases {
		got, err := seq.ValueAt(index)
		if err != nil {
			t.Fatalf("value at %d: %v", index, err)
		}
		if got != want {
			t.Fatalf("value at %d: got %f want %f", index, got, want)
		}
	}
}

func TestSequenceValueAtEmpty(t *testing.T) {
	if _, err := NewSequence().ValueAt(-1); !errors.Is(err, ErrEmptySequence) {
		t.Fatalf("expected ErrEmptySequence, got %v", err)
	}
}

func TestGeneApplyKinds(t *testing.T) {
	cases := []struct {
		gene *Gene
		want float64
	}{
		{NewGene("a", KindAdd, 1.5), 3.5},
		{NewGene("s", KindSubtract, 1.5), 0.5},
		{NewGene("m", KindMultiply, 1.5), 3.0},
		{NewGene("d", KindDivide, 4), 0.5},
		{NewGene("sin", KindSine), math.Sin(2)},
	}
	for _, tc := range cases {
		seq := NewSequence(7, 2)
		if err := tc.gene.Apply(seq); err != nil {
			t.Fatalf("apply %s: %v", tc.gene.Kind, err)
		}
		if seq.Len() != 3 {
			t.Fatalf("apply %s: expected one appended value, len=%d", tc.gene.Kind, seq.Len())
		}
		got, _ := seq.Last()
		if math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("apply %s: got %f want %f", tc.gene.Kind, got, tc.want)
		}
		if seq.Points[2].Source != tc.gene.ID {
			t.Fatalf("apply %s: expected source label %q, got %q", tc.gene.Kind, tc.gene.ID, seq.Points[2].Source)
		}
	}
}

func TestGeneDivideByZero(t *testing.T) {
	seq := NewSequence(1)
	err := NewGene("d", KindDivide, 0).Apply(seq)
	if !errors.Is(err, ErrDivisionByZero) || !errors.Is(err, ErrOperation) {
		t.Fatalf("expected division by zero operation error, got %v", err)
	}
	if seq.Len() != 1 {
		t.Fatalf("failed gene must not append, len=%d", seq.Len())
	}
}

func TestGeneMissingConstant(t *testing.T) {
	gene := &Gene{ID: "bad", Kind: KindAdd, Sources: []int{-1}}
	if err := gene.Apply(NewSequence(1)); !errors.Is(err, ErrOperation) {
		t.Fatalf("expected ErrOperation, got %v", err)
	}
}

func TestOrganismConsumeRunsChromosomesInOrder(t *testing.T) {
	org := NewOrganism("o",
		NewChromosome("c0", NewGene("add", KindAdd, 1), NewGene("mul", KindMultiply, 2)),
		NewChromosome("c1", NewGene("sub", KindSubtract, 3)),
	)
	seq := NewSequence(4)
	if err := org.Consume(seq); err != nil {
		t.Fatalf("consume: %v", err)
	}
	got, _ := seq.Last()
	if got != 7 {
		t.Fatalf("expected (4+1)*2-3 = 7, got %f", got)
	}
	if seq.Len() != 4 {
		t.Fatalf("expected 4 values, got %d", seq.Len())
	}
}

func TestCloneRoundTrip(t *testing.T) {
	org := NewOrganism("o",
		NewChromosome("c0", NewGene("add", KindAdd, 1), NewGene("sin", KindSine)),
		NewChromosome("c1", NewGene("div", KindDivide, 3)),
	)
	clone := org.Clone()
	if !organismsEqual(org, clone) {
		t.Fatalf("clone differs from source")
	}
	if clone == org || clone.Chromosomes[0] == org.Chromosomes[0] || clone.Chromosomes[0].Genes[0] == org.Chromosomes[0].Genes[0] {
		t.Fatalf("clone shares structure with source")
	}

	clone.Chromosomes[0].Genes[0].Constants[0] = 99
	clone.Chromosomes[1].Genes = nil
	if org.Chromosomes[0].Genes[0].Constants[0] != 1 || len(org.Chromosomes[1].Genes) != 1 {
		t.Fatalf("editing clone changed source")
	}

	renamed := org.CloneAs("other")
	if renamed.ID != "other" || renamed.GeneCount() != 3 {
		t.Fatalf("unexpected renamed clone %+v", renamed)
	}
}

func organismsEqual(a, b *Organism) bool {
	if a.ID != b.ID || len(a.Chromosomes) != len(b.Chromosomes) {
		return false
	}
	for i := range a.Chromosomes {
		ca, cb := a.Chromosomes[i], b.Chromosomes[i]
		if ca.ID != cb.ID || len(ca.Genes) != len(cb.Genes) {
			return false
		}
		for j := range ca.Genes {
			if ca.Genes[j].String() != cb.Genes[j].String() || ca.Genes[j].ID != cb.Genes[j].ID {
				return false
			}
		}
	}
	return true
}

func TestOrganismValidate(t *testing.T) {
	valid := NewOrganism("o", NewChromosome("c", NewGene("g", KindAdd, 1)))
	if err := valid.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	var missing *Organism
	if err := missing.Validate(); err == nil {
		t.Fatal("expected nil organism error")
	}
	nullChromosome := &Organism{ID: "o", Chromosomes: []*Chromosome{nil}}
	if err := nullChromosome.Validate(); err == nil {
		t.Fatal("expected null chromosome error")
	}
	badKind := NewOrganism("o", NewChromosome("c", &Gene{ID: "g", Kind: "tangent", Sources: []int{-1}}))
	if err := badKind.Validate(); err == nil {
		t.Fatal("expected unknown kind error")
	}
}
