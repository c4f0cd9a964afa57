package genome

import (
	"fmt"
	"math/rand"
)

const (
	MinRandomConstant = 0.1
	MaxRandomConstant = 10.0
)

// RandomGene picks a kind uniformly and draws its constants from
// [MinRandomConstant, MaxRandomConstant). The gene reads the latest value.
func RandomGene(rng *rand.Rand) *Gene {
	kind := Kinds[rng.Intn(len(Kinds))]
	constants := make([]float64, 0, kind.ConstantCount())
	for i := 0; i < kind.ConstantCount(); i++ {
		constants = append(constants, MinRandomConstant+rng.Float64()*(MaxRandomConstant-MinRandomConstant))
	}
	if len(constants) == 0 {
		constants = nil
	}
	return &Gene{
		ID:        fmt.Sprintf("%s-%08x", kind, rng.Uint32()),
		Kind:      kind,
		Sources:   []int{-1},
		Constants: constants,
	}
}

// RandomChromosome returns a chromosome holding a single random gene.
func RandomChromosome(rng *rand.Rand) *Chromosome {
	return &Chromosome{
		ID:    fmt.Sprintf("chromosome-%08x", rng.Uint32()),
		Genes: []*Gene{RandomGene(rng)},
	}
}
