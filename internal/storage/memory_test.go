package storage

import (
	"context"
	"errors"
	"testing"

	"gaiaf/internal/genome"
)

func TestMemoryOrganismStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOrganismStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := genome.NewOrganism("o1", genome.NewChromosome("c1", genome.NewGene("g1", genome.KindAdd, 1)))
	if err := store.SaveOrganism(ctx, input); err != nil {
		t.Fatalf("save organism: %v", err)
	}
	input.Chromosomes[0].Genes[0].Constants[0] = 42

	output, err := store.GetOrganism(ctx, "o1")
	if err != nil {
		t.Fatalf("get organism: %v", err)
	}
	if output.Chromosomes[0].Genes[0].Constants[0] != 1 {
		t.Fatalf("stored organism aliased caller copy: %+v", output.Chromosomes[0].Genes[0])
	}

	ids, err := store.OrganismIDs(ctx)
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "o1" {
		t.Fatalf("unexpected ids: %v", ids)
	}

	if err := store.DeleteOrganism(ctx, "o1"); err != nil {
		t.Fatalf("delete organism: %v", err)
	}
	if _, err := store.GetOrganism(ctx, "o1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := store.DeleteOrganism(ctx, "o1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestMemoryOrganismStoreRequiresInit(t *testing.T) {
	store := NewMemoryOrganismStore()
	if err := store.SaveOrganism(context.Background(), genome.NewOrganism("o")); err == nil {
		t.Fatal("expected not initialized error")
	}
}

func TestMemoryOrganismStoreRejectsMissingID(t *testing.T) {
	store := NewMemoryOrganismStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveOrganism(context.Background(), genome.NewOrganism("")); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
