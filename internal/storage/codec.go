package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"gaiaf/internal/genome"
	"gaiaf/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeOrganism(organism *genome.Organism) ([]byte, error) {
	if organism == nil {
		return nil, fmt.Errorf("%w: organism is required", ErrInvalidArgument)
	}
	return json.Marshal(model.OrganismRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              organism.ID,
		Organism:        organism,
	})
}

func DecodeOrganism(data []byte) (*genome.Organism, error) {
	var record model.OrganismRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return nil, err
	}
	if record.Organism == nil {
		return nil, fmt.Errorf("organism record %s has no payload", record.ID)
	}
	if record.Organism.ID != record.ID {
		return nil, fmt.Errorf("organism record id %q does not match payload id %q", record.ID, record.Organism.ID)
	}
	if err := record.Organism.Validate(); err != nil {
		return nil, err
	}
	return record.Organism, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
