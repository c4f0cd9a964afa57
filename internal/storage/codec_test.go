package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gaiaf/internal/genome"
)

func TestDecodeOrganismFixture(t *testing.T) {
	data, err := os.ReadFile(fixturePath("minimal_organism_v1.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	organism, err := DecodeOrganism(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if organism.ID != "organism-minimal-1" {
		t.Fatalf("unexpected organism id: %s", organism.ID)
	}
	if organism.GeneCount() != 2 || organism.Chromosomes[0].Genes[1].Kind != genome.KindSine {
		t.Fatalf("unexpected organism structure: %+v", organism.Chromosomes[0])
	}
}

func TestOrganismCodecRoundTrip(t *testing.T) {
	input := genome.NewOrganism("o1",
		genome.NewChromosome("c1", genome.NewGene("g1", genome.KindDivide, 2.5), genome.NewGene("g2", genome.KindSine)),
	)
	data, err := EncodeOrganism(input)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	output, err := DecodeOrganism(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(input, output) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", input, output)
	}
}

func TestDecodeOrganismVersionMismatch(t *testing.T) {
	data := []byte(`{"schema_version":2,"codec_version":1,"id":"o","organism":{"id":"o","chromosomes":[]}}`)
	if _, err := DecodeOrganism(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestDecodeOrganismRejectsUnknownKind(t *testing.T) {
	data := []byte(`{"schema_version":1,"codec_version":1,"id":"o","organism":{"id":"o","chromosomes":[{"genes":[{"id":"x","kind":"cosine","sources":[-1]}]}]}}`)
	if _, err := DecodeOrganism(data); err == nil {
		t.Fatal("expected unknown kind error")
	}
}

func TestDecodeOrganismRejectsMismatchedID(t *testing.T) {
	data := []byte(`{"schema_version":1,"codec_version":1,"id":"a","organism":{"id":"b","chromosomes":[]}}`)
	if _, err := DecodeOrganism(data); err == nil {
		t.Fatal("expected id mismatch error")
	}
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}
