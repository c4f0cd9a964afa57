package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"gaiaf/internal/genome"
	"gaiaf/internal/model"
)

func scored(experimentID string, score float64) model.ScoredOrganism {
	return model.ScoredOrganism{
		Score:        score,
		OrganismID:   fmt.Sprintf("org-%v", score),
		Organism:     genome.NewOrganism(fmt.Sprintf("org-%v", score)),
		ExperimentID: experimentID,
	}
}

func seed(t *testing.T, store *MemoryPopulationStore, experimentID string, scores ...float64) []model.ScoredOrganism {
	t.Helper()
	out := make([]model.ScoredOrganism, 0, len(scores))
	for _, score := range scores {
		saved, err := store.Save(context.Background(), scored(experimentID, score))
		if err != nil {
			t.Fatalf("save %v: %v", score, err)
		}
		out = append(out, saved)
	}
	return out
}

func scoresOf(t *testing.T, store *MemoryPopulationStore, experimentID string) []float64 {
	t.Helper()
	entries, err := store.ScoredOrganisms(context.Background(), experimentID, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	out := make([]float64, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Score)
	}
	return out
}

func TestPopulationSaveAssignsIDAndOrders(t *testing.T) {
	store := NewMemoryPopulationStore()
	saved := seed(t, store, "exp", 5, 1, 3, 2, 4)
	for _, entry := range saved {
		if entry.ID == "" {
			t.Fatal("expected assigned result id")
		}
		if entry.ID == entry.OrganismID {
			t.Fatal("result id must differ from organism id")
		}
	}
	got := scoresOf(t, store, "exp")
	want := []float64{1, 2, 3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: %v", got)
		}
	}
	if err := store.CheckInvariants("exp"); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestPopulationSaveRequiresExperiment(t *testing.T) {
	store := NewMemoryPopulationStore()
	if _, err := store.Save(context.Background(), scored("", 1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if _, err := store.Save(context.Background(), scored("exp", math.NaN())); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for NaN, got %v", err)
	}
}

func TestPopulationResaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPopulationStore()
	saved := seed(t, store, "exp", 3)[0]
	saved.Score = 7
	if _, err := store.Save(ctx, saved); err != nil {
		t.Fatalf("resave: %v", err)
	}
	size, _ := store.Size(ctx, "exp")
	if size != 1 {
		t.Fatalf("expected one entry after resave, got %d", size)
	}
	got, err := store.Get(ctx, saved.ID)
	if err != nil || got.Score != 7 {
		t.Fatalf("unexpected resaved entry %+v err=%v", got, err)
	}
}

func TestPopulationGetAndDeleteNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPopulationStore()
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPopulationGetDoesNotAlias(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPopulationStore()
	candidate := scored("exp", 1)
	candidate.Organism = genome.NewOrganism("o", genome.NewChromosome("c", genome.NewGene("g", genome.KindAdd, 1)))
	saved, err := store.Save(ctx, candidate)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	saved.Organism.Chromosomes[0].Genes[0].Constants[0] = 9
	candidate.Organism.Chromosomes[0].Genes[0].Constants[0] = 9

	got, err := store.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Organism.Chromosomes[0].Genes[0].Constants[0] != 1 {
		t.Fatal("stored organism was mutated through a returned or saved reference")
	}
}

func TestPopulationDeleteSameScore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPopulationStore()
	seed(t, store, "exp", 1, 9)
	same := seed(t, store, "exp", 4, 4, 4, 4)

	if err := store.Delete(ctx, same[2].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, same[2].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted entry gone, got %v", err)
	}
	for _, i := range []int{0, 1, 3} {
		if _, err := store.Get(ctx, same[i].ID); err != nil {
			t.Fatalf("same-score sibling %d removed: %v", i, err)
		}
	}
	ids, _ := store.OrganismIDs(ctx, "exp")
	if len(ids) != 5 {
		t.Fatalf("expected 5 ids, got %d", len(ids))
	}
	for _, id := range ids {
		if id == same[2].ID {
			t.Fatal("deleted id still ranked")
		}
	}
	if err := store.CheckInvariants("exp"); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestPopulationPercentValidation(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))
	store := NewMemoryPopulationStore()
	if _, err := store.RandomFromTopPercent(ctx, rng, "exp", 0.1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected empty population error, got %v", err)
	}
	seed(t, store, "exp", 1)
	for _, percent := range []float64{-0.1, 1.1, math.NaN()} {
		if _, err := store.RandomFromTopPercent(ctx, rng, "exp", percent); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("top %v: expected invalid argument, got %v", percent, err)
		}
		if _, err := store.RandomFromBottomPercent(ctx, rng, "exp", percent); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("bottom %v: expected invalid argument, got %v", percent, err)
		}
	}
	if _, err := store.RandomFromTopPercent(ctx, nil, "exp", 0.5); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for nil rng, got %v", err)
	}
}

func TestPopulationPercentileBounds(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	for _, size := range []int{1, 2, 3, 10, 37} {
		store := NewMemoryPopulationStore()
		scores := make([]float64, size)
		for i := range scores {
			scores[i] = float64(rng.Intn(20))
		}
		seed(t, store, "exp", scores...)
		sorted := append([]float64(nil), scores...)
		sort.Float64s(sorted)

		for _, percent := range []float64{0, 0.1, 0.25, 0.5, 0.9, 1} {
			topCut := int(math.Ceil(float64(size) * percent))
			if topCut < 1 {
				topCut = 1
			}
			if topCut > size {
				topCut = size
			}
			bottomCut := int(math.Ceil(float64(size) * (1 - percent)))
			if bottomCut >= size {
				bottomCut = size - 1
			}
			for i := 0; i < 50; i++ {
				top, err := store.RandomFromTopPercent(ctx, rng, "exp", percent)
				if err != nil {
					t.Fatalf("top: %v", err)
				}
				if top.Score > sorted[topCut-1] {
					t.Fatalf("size %d top %v: score %v above bound %v", size, percent, top.Score, sorted[topCut-1])
				}
				bottom, err := store.RandomFromBottomPercent(ctx, rng, "exp", percent)
				if err != nil {
					t.Fatalf("bottom: %v", err)
				}
				if bottom.Score < sorted[bottomCut] {
					t.Fatalf("size %d bottom %v: score %v below bound %v", size, percent, bottom.Score, sorted[bottomCut])
				}
			}
		}
	}
}

func TestPopulationTopPercentCoversPrefix(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(5))
	store := NewMemoryPopulationStore()
	seed(t, store, "exp", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	seen := map[float64]bool{}
	for i := 0; i < 500; i++ {
		entry, err := store.RandomFromTopPercent(ctx, rng, "exp", 0.3)
		if err != nil {
			t.Fatalf("top: %v", err)
		}
		seen[entry.Score] = true
	}
	if len(seen) != 3 || !seen[1] || !seen[2] || !seen[3] {
		t.Fatalf("expected picks from the three best, saw %v", seen)
	}
}

func TestPopulationRandomOpsKeepOrder(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(99))
	store := NewMemoryPopulationStore()
	live := []string{}
	for op := 0; op < 2000; op++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			i := rng.Intn(len(live))
			if err := store.Delete(ctx, live[i]); err != nil {
				t.Fatalf("op %d delete: %v", op, err)
			}
			live = append(live[:i], live[i+1:]...)
		} else {
			saved, err := store.Save(ctx, scored("exp", float64(rng.Intn(50))/2))
			if err != nil {
				t.Fatalf("op %d save: %v", op, err)
			}
			live = append(live, saved.ID)
		}
		if err := store.CheckInvariants("exp"); err != nil {
			t.Fatalf("op %d: %v", op, err)
		}
		size, _ := store.Size(ctx, "exp")
		if size != len(live) {
			t.Fatalf("op %d: size %d, want %d", op, size, len(live))
		}
	}
	got := scoresOf(t, store, "exp")
	if !sort.Float64sAreSorted(got) {
		t.Fatalf("scores not ascending: %v", got)
	}
}

func TestPopulationPaging(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPopulationStore()
	seed(t, store, "exp", 5, 4, 3, 2, 1)

	page, err := store.ScoredOrganisms(ctx, "exp", 1, 2)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if len(page) != 2 || page[0].Score != 2 || page[1].Score != 3 {
		t.Fatalf("unexpected page: %+v", page)
	}
	page, _ = store.ScoredOrganisms(ctx, "exp", 4, 10)
	if len(page) != 1 || page[0].Score != 5 {
		t.Fatalf("unexpected tail page: %+v", page)
	}
	page, _ = store.ScoredOrganisms(ctx, "exp", 9, 1)
	if len(page) != 0 {
		t.Fatalf("expected empty page, got %+v", page)
	}
	if _, err := store.ScoredOrganisms(ctx, "exp", -1, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestPopulationExperimentsArePartitioned(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPopulationStore()
	seed(t, store, "b", 1, 2)
	seed(t, store, "a", 3)

	ids, _ := store.ExperimentIDs(ctx)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected experiment ids: %v", ids)
	}
	aIDs, _ := store.OrganismIDs(ctx, "a")
	bIDs, _ := store.OrganismIDs(ctx, "b")
	if len(aIDs) != 1 || len(bIDs) != 2 {
		t.Fatalf("unexpected partition sizes: a=%d b=%d", len(aIDs), len(bIDs))
	}
	missing, _ := store.OrganismIDs(ctx, "none")
	if missing == nil || len(missing) != 0 {
		t.Fatalf("expected empty non-nil ids, got %v", missing)
	}
}

func TestPopulationConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPopulationStore()
	seed(t, store, "exp-0", 1)
	seed(t, store, "exp-1", 1)

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(worker)))
			experimentID := fmt.Sprintf("exp-%d", worker%2)
			for i := 0; i < 200; i++ {
				saved, err := store.Save(ctx, scored(experimentID, rng.Float64()))
				if err != nil {
					t.Errorf("save: %v", err)
					return
				}
				if _, err := store.RandomFromTopPercent(ctx, rng, experimentID, 0.1); err != nil {
					t.Errorf("top: %v", err)
					return
				}
				if _, err := store.RandomFromBottomPercent(ctx, rng, experimentID, 0.9); err != nil {
					t.Errorf("bottom: %v", err)
					return
				}
				if i%2 == 0 {
					if err := store.Delete(ctx, saved.ID); err != nil {
						t.Errorf("delete: %v", err)
						return
					}
				}
			}
		}(worker)
	}
	wg.Wait()

	for _, experimentID := range []string{"exp-0", "exp-1"} {
		if err := store.CheckInvariants(experimentID); err != nil {
			t.Fatalf("invariants: %v", err)
		}
		size, _ := store.Size(ctx, experimentID)
		if size != 1+4*100 {
			t.Fatalf("%s: unexpected size %d", experimentID, size)
		}
	}
}

func largeOrganism(id string, genes int) *genome.Organism {
	chromosome := genome.NewChromosome("c")
	for i := 0; i < genes; i++ {
		chromosome.Genes = append(chromosome.Genes, genome.NewGene(fmt.Sprintf("g%d", i), genome.KindAdd, 1))
	}
	return genome.NewOrganism(id, chromosome)
}

func TestPopulationConcurrentResaveKeepsOneEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPopulationStore()
	organism := largeOrganism("org-r1", 20000)

	for round := 0; round < 5; round++ {
		start := make(chan struct{})
		var wg sync.WaitGroup
		for worker := 0; worker < 8; worker++ {
			wg.Add(1)
			go func(worker int) {
				defer wg.Done()
				<-start
				_, err := store.Save(ctx, model.ScoredOrganism{
					ID:           "r1",
					Score:        float64(worker),
					Organism:     organism,
					ExperimentID: "exp",
				})
				if err != nil {
					t.Errorf("save: %v", err)
				}
			}(worker)
		}
		close(start)
		wg.Wait()

		size, _ := store.Size(ctx, "exp")
		if size != 1 {
			t.Fatalf("round %d: expected one entry, got %d", round, size)
		}
		if err := store.CheckInvariants("exp"); err != nil {
			t.Fatalf("round %d: invariants: %v", round, err)
		}
		ids, _ := store.OrganismIDs(ctx, "exp")
		if len(ids) != 1 || ids[0] != "r1" {
			t.Fatalf("round %d: unexpected ids %v", round, ids)
		}
	}
}

func TestPopulationResaveMovesExperiment(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPopulationStore()
	if _, err := store.Save(ctx, model.ScoredOrganism{ID: "r1", Score: 1, ExperimentID: "exp-a"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Save(ctx, model.ScoredOrganism{ID: "r1", Score: 2, ExperimentID: "exp-b"}); err != nil {
		t.Fatalf("move: %v", err)
	}
	sizeA, _ := store.Size(ctx, "exp-a")
	sizeB, _ := store.Size(ctx, "exp-b")
	if sizeA != 0 || sizeB != 1 {
		t.Fatalf("expected sizes 0/1, got %d/%d", sizeA, sizeB)
	}
	got, err := store.Get(ctx, "r1")
	if err != nil || got.ExperimentID != "exp-b" || got.Score != 2 {
		t.Fatalf("unexpected moved entry %+v err=%v", got, err)
	}

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			experimentID := "exp-a"
			if worker%2 == 1 {
				experimentID = "exp-b"
			}
			for i := 0; i < 100; i++ {
				if _, err := store.Save(ctx, model.ScoredOrganism{ID: "r1", Score: float64(i), ExperimentID: experimentID}); err != nil {
					t.Errorf("save: %v", err)
					return
				}
			}
		}(worker)
	}
	wg.Wait()

	sizeA, _ = store.Size(ctx, "exp-a")
	sizeB, _ = store.Size(ctx, "exp-b")
	if sizeA+sizeB != 1 {
		t.Fatalf("expected one entry across experiments, got %d/%d", sizeA, sizeB)
	}
	for _, experimentID := range []string{"exp-a", "exp-b"} {
		if err := store.CheckInvariants(experimentID); err != nil {
			t.Fatalf("invariants: %v", err)
		}
	}
}
