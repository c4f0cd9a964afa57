package genome

import "fmt"

// Chromosome is an ordered gene pipeline.
type Chromosome struct {
	ID    string  `json:"id,omitempty"`
	Genes []*Gene `json:"genes"`
}

func NewChromosome(id string, genes ...*Gene) *Chromosome {
	return &Chromosome{ID: id, Genes: genes}
}

func (c *Chromosome) Consume(seq *Sequence) error {
	for _, gene := range c.Genes {
		if err := gene.Apply(seq); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chromosome) Clone() *Chromosome {
	if c == nil {
		return nil
	}
	var genes []*Gene
	if c.Genes != nil {
		genes = make([]*Gene, len(c.Genes))
		for i, gene := range c.Genes {
			genes[i] = gene.Clone()
		}
	}
	return &Chromosome{ID: c.ID, Genes: genes}
}

// Organism is an evolvable program. Chromosomes run in order against one
// shared value sequence.
type Organism struct {
	ID          string        `json:"id"`
	Chromosomes []*Chromosome `json:"chromosomes"`
}

func NewOrganism(id string, chromosomes ...*Chromosome) *Organism {
	return &Organism{ID: id, Chromosomes: chromosomes}
}

func (o *Organism) AddChromosome(chromosome *Chromosome) error {
	if chromosome == nil {
		return fmt.Errorf("chromosome is required")
	}
	o.Chromosomes = append(o.Chromosomes, chromosome)
	return nil
}

func (o *Organism) Consume(seq *Sequence) error {
	for i, chromosome := range o.Chromosomes {
		if err := chromosome.Consume(seq); err != nil {
			return fmt.Errorf("organism %s chromosome %d: %w", o.ID, i, err)
		}
	}
	return nil
}

// Clone deep-copies the organism, keeping its id.
func (o *Organism) Clone() *Organism {
	if o == nil {
		return nil
	}
	return o.CloneAs(o.ID)
}

// CloneAs deep-copies the organism under a new id.
func (o *Organism) CloneAs(id string) *Organism {
	if o == nil {
		return nil
	}
	var chromosomes []*Chromosome
	if o.Chromosomes != nil {
		chromosomes = make([]*Chromosome, len(o.Chromosomes))
		for i, chromosome := range o.Chromosomes {
			chromosomes[i] = chromosome.Clone()
		}
	}
	return &Organism{ID: id, Chromosomes: chromosomes}
}

// GeneCount sums genes across chromosomes.
func (o *Organism) GeneCount() int {
	total := 0
	for _, chromosome := range o.Chromosomes {
		total += len(chromosome.Genes)
	}
	return total
}

// Validate checks that every chromosome and gene is present and every gene
// kind is known.
func (o *Organism) Validate() error {
	if o == nil {
		return fmt.Errorf("organism is required")
	}
	for ci, chromosome := range o.Chromosomes {
		if chromosome == nil {
			return fmt.Errorf("organism %s: chromosome %d is null", o.ID, ci)
		}
		for gi, gene := range chromosome.Genes {
			if gene == nil || !gene.Kind.Valid() {
				return fmt.Errorf("organism %s: gene %d/%d has unknown kind", o.ID, ci, gi)
			}
		}
	}
	return nil
}
