package genome

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrInvalidMutation = errors.New("invalid mutation")

type MutationKind string

const (
	MutationAddChromosome    MutationKind = "add_chromosome"
	MutationMoveChromosome   MutationKind = "move_chromosome"
	MutationDeleteChromosome MutationKind = "delete_chromosome"
	MutationAddGene          MutationKind = "add_gene"
	MutationMoveGene         MutationKind = "move_gene"
	MutationDeleteGene       MutationKind = "delete_gene"
	MutationIncreaseSource   MutationKind = "increase_source"
	MutationDecreaseSource   MutationKind = "decrease_source"
	MutationIncreaseConstant MutationKind = "increase_constant"
	MutationDecreaseConstant MutationKind = "decrease_constant"
)

const (
	maxSourceShift    = 5
	minConstantGrowth = 1.01
	minConstantShrink = 0.80
	constantSpread    = 0.19
)

// Mutation describes one structural edit. Path addresses the list it edits:
// empty for the organism's chromosome list, [c] for chromosome c's gene list
// and [c, g] for gene g of chromosome c. Candidates from Mutations carry only
// Kind, Path and Slot; Resolve fills the remaining parameters.
type Mutation struct {
	Kind       MutationKind `json:"kind"`
	Path       []int        `json:"path,omitempty"`
	Slot       int          `json:"slot,omitempty"`
	From       int          `json:"from,omitempty"`
	To         int          `json:"to,omitempty"`
	Delta      int          `json:"delta,omitempty"`
	Factor     float64      `json:"factor,omitempty"`
	Gene       *Gene        `json:"gene,omitempty"`
	Chromosome *Chromosome  `json:"chromosome,omitempty"`
}

func (m Mutation) Description() string {
	switch m.Kind {
	case MutationAddChromosome:
		return "Add a random chromosome"
	case MutationMoveChromosome:
		return "Reorder a single chromosome"
	case MutationDeleteChromosome:
		return "Delete a random chromosome"
	case MutationAddGene:
		return fmt.Sprintf("Add a random gene to chromosome %v", m.Path)
	case MutationMoveGene:
		return fmt.Sprintf("Move a random gene in chromosome %v", m.Path)
	case MutationDeleteGene:
		return fmt.Sprintf("Delete a random gene from chromosome %v", m.Path)
	case MutationIncreaseSource:
		return fmt.Sprintf("Increase source[%d] of gene %v", m.Slot, m.Path)
	case MutationDecreaseSource:
		return fmt.Sprintf("Decrease source[%d] of gene %v", m.Slot, m.Path)
	case MutationIncreaseConstant:
		return fmt.Sprintf("Increase constant[%d] of gene %v", m.Slot, m.Path)
	case MutationDecreaseConstant:
		return fmt.Sprintf("Decrease constant[%d] of gene %v", m.Slot, m.Path)
	default:
		return string(m.Kind)
	}
}

// Mutations enumerates the candidate edits currently offered by the organism,
// its chromosomes and their genes.
func (o *Organism) Mutations() []Mutation {
	out := listMutations(nil, len(o.Chromosomes), MutationAddChromosome, MutationMoveChromosome, MutationDeleteChromosome)
	for c, chromosome := range o.Chromosomes {
		out = append(out, chromosome.mutations(c)...)
	}
	return out
}

func (c *Chromosome) mutations(index int) []Mutation {
	path := []int{index}
	out := listMutations(path, len(c.Genes), MutationAddGene, MutationMoveGene, MutationDeleteGene)
	for g, gene := range c.Genes {
		out = append(out, gene.mutations([]int{index, g})...)
	}
	return out
}

func (g *Gene) mutations(path []int) []Mutation {
	out := make([]Mutation, 0, 2*(len(g.Sources)+len(g.Constants)))
	for slot := range g.Sources {
		out = append(out,
			Mutation{Kind: MutationIncreaseSource, Path: path, Slot: slot},
			Mutation{Kind: MutationDecreaseSource, Path: path, Slot: slot},
		)
	}
	for slot := range g.Constants {
		out = append(out,
			Mutation{Kind: MutationIncreaseConstant, Path: path, Slot: slot},
			Mutation{Kind: MutationDecreaseConstant, Path: path, Slot: slot},
		)
	}
	return out
}

// listMutations offers insert always, and reorder/delete only while at least
// two elements exist so a list is never emptied by mutation.
func listMutations(path []int, size int, add, move, del MutationKind) []Mutation {
	out := []Mutation{{Kind: add, Path: path}}
	if size >= 2 {
		out = append(out, Mutation{Kind: move, Path: path}, Mutation{Kind: del, Path: path})
	}
	return out
}

// Resolve draws the random parameters of a candidate mutation against the
// organism's current structure.
func Resolve(o *Organism, m Mutation, rng *rand.Rand) (Mutation, error) {
	if rng == nil {
		return Mutation{}, errors.New("random source is required")
	}
	resolved := m
	resolved.Path = append([]int(nil), m.Path...)

	switch m.Kind {
	case MutationAddChromosome:
		resolved.To = rng.Intn(len(o.Chromosomes) + 1)
		resolved.Chromosome = RandomChromosome(rng)
	case MutationMoveChromosome:
		from, to, err := drawMove(rng, len(o.Chromosomes))
		if err != nil {
			return Mutation{}, err
		}
		resolved.From, resolved.To = from, to
	case MutationDeleteChromosome:
		if len(o.Chromosomes) == 0 {
			return Mutation{}, fmt.Errorf("%w: no chromosome to delete", ErrInvalidMutation)
		}
		resolved.From = rng.Intn(len(o.Chromosomes))
	case MutationAddGene, MutationMoveGene, MutationDeleteGene:
		chromosome, err := o.chromosomeAt(m.Path)
		if err != nil {
			return Mutation{}, err
		}
		switch m.Kind {
		case MutationAddGene:
			resolved.To = rng.Intn(len(chromosome.Genes) + 1)
			resolved.Gene = RandomGene(rng)
		case MutationMoveGene:
			from, to, err := drawMove(rng, len(chromosome.Genes))
			if err != nil {
				return Mutation{}, err
			}
			resolved.From, resolved.To = from, to
		default:
			if len(chromosome.Genes) == 0 {
				return Mutation{}, fmt.Errorf("%w: no gene to delete", ErrInvalidMutation)
			}
			resolved.From = rng.Intn(len(chromosome.Genes))
		}
	case MutationIncreaseSource:
		resolved.Delta = 1 + rng.Intn(maxSourceShift)
	case MutationDecreaseSource:
		resolved.Delta = -(1 + rng.Intn(maxSourceShift))
	case MutationIncreaseConstant:
		resolved.Factor = minConstantGrowth + rng.Float64()*constantSpread
	case MutationDecreaseConstant:
		resolved.Factor = minConstantShrink + rng.Float64()*constantSpread
	default:
		return Mutation{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidMutation, m.Kind)
	}
	return resolved, nil
}

func drawMove(rng *rand.Rand, size int) (int, int, error) {
	if size < 2 {
		return 0, 0, fmt.Errorf("%w: reorder needs two elements, have %d", ErrInvalidMutation, size)
	}
	from := rng.Intn(size)
	to := rng.Intn(size - 1)
	if to >= from {
		to++
	}
	return from, to, nil
}

// ApplyMutation performs a fully parameterised mutation in place. Exactly one
// structural list is edited.
func ApplyMutation(o *Organism, m Mutation) error {
	switch m.Kind {
	case MutationAddChromosome:
		if m.Chromosome == nil {
			return fmt.Errorf("%w: add_chromosome without chromosome", ErrInvalidMutation)
		}
		updated, err := insertAt(o.Chromosomes, m.To, m.Chromosome)
		if err != nil {
			return err
		}
		o.Chromosomes = updated
	case MutationMoveChromosome:
		return moveWithin(o.Chromosomes, m.From, m.To)
	case MutationDeleteChromosome:
		updated, err := removeAt(o.Chromosomes, m.From)
		if err != nil {
			return err
		}
		o.Chromosomes = updated
	case MutationAddGene, MutationMoveGene, MutationDeleteGene:
		chromosome, err := o.chromosomeAt(m.Path)
		if err != nil {
			return err
		}
		switch m.Kind {
		case MutationAddGene:
			if m.Gene == nil {
				return fmt.Errorf("%w: add_gene without gene", ErrInvalidMutation)
			}
			updated, err := insertAt(chromosome.Genes, m.To, m.Gene)
			if err != nil {
				return err
			}
			chromosome.Genes = updated
		case MutationMoveGene:
			return moveWithin(chromosome.Genes, m.From, m.To)
		default:
			updated, err := removeAt(chromosome.Genes, m.From)
			if err != nil {
				return err
			}
			chromosome.Genes = updated
		}
	case MutationIncreaseSource, MutationDecreaseSource:
		gene, err := o.geneAt(m.Path)
		if err != nil {
			return err
		}
		if m.Slot < 0 || m.Slot >= len(gene.Sources) {
			return fmt.Errorf("%w: source slot %d out of range", ErrInvalidMutation, m.Slot)
		}
		gene.Sources[m.Slot] += m.Delta
	case MutationIncreaseConstant, MutationDecreaseConstant:
		gene, err := o.geneAt(m.Path)
		if err != nil {
			return err
		}
		if m.Slot < 0 || m.Slot >= len(gene.Constants) {
			return fmt.Errorf("%w: constant slot %d out of range", ErrInvalidMutation, m.Slot)
		}
		gene.Constants[m.Slot] *= m.Factor
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMutation, m.Kind)
	}
	return nil
}

func (o *Organism) chromosomeAt(path []int) (*Chromosome, error) {
	if len(path) < 1 {
		return nil, fmt.Errorf("%w: chromosome path required", ErrInvalidMutation)
	}
	if path[0] < 0 || path[0] >= len(o.Chromosomes) || o.Chromosomes[path[0]] == nil {
		return nil, fmt.Errorf("%w: chromosome %d out of range", ErrInvalidMutation, path[0])
	}
	return o.Chromosomes[path[0]], nil
}

func (o *Organism) geneAt(path []int) (*Gene, error) {
	if len(path) != 2 {
		return nil, fmt.Errorf("%w: gene path must have two elements, got %v", ErrInvalidMutation, path)
	}
	chromosome, err := o.chromosomeAt(path)
	if err != nil {
		return nil, err
	}
	if path[1] < 0 || path[1] >= len(chromosome.Genes) || chromosome.Genes[path[1]] == nil {
		return nil, fmt.Errorf("%w: gene %v out of range", ErrInvalidMutation, path)
	}
	return chromosome.Genes[path[1]], nil
}

func insertAt[T any](items []T, at int, item T) ([]T, error) {
	if at < 0 || at > len(items) {
		return nil, fmt.Errorf("%w: insert position %d out of range [0,%d]", ErrInvalidMutation, at, len(items))
	}
	items = append(items, item)
	copy(items[at+1:], items[at:len(items)-1])
	items[at] = item
	return items, nil
}

func removeAt[T any](items []T, at int) ([]T, error) {
	if at < 0 || at >= len(items) {
		return nil, fmt.Errorf("%w: remove position %d out of range [0,%d)", ErrInvalidMutation, at, len(items))
	}
	return append(items[:at], items[at+1:]...), nil
}

// moveWithin removes the element at from and reinserts it at to.
func moveWithin[T any](items []T, from, to int) error {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) || from == to {
		return fmt.Errorf("%w: move %d->%d invalid for %d elements", ErrInvalidMutation, from, to, len(items))
	}
	item := items[from]
	if from < to {
		copy(items[from:to], items[from+1:to+1])
	} else {
		copy(items[to+1:from+1], items[to:from])
	}
	items[to] = item
	return nil
}
