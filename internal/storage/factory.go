package storage

import "fmt"

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// NewOrganismStore selects a genome store backend by name. An empty kind
// means the build's default. The returned store still needs Init.
func NewOrganismStore(kind, sqlitePath string) (OrganismStore, error) {
	if kind == "" {
		kind = DefaultStoreKind()
	}
	switch kind {
	case KindMemory:
		return NewMemoryOrganismStore(), nil
	case KindSQLite:
		if sqlitePath == "" {
			return nil, fmt.Errorf("sqlite store requires a database path")
		}
		return newSQLiteOrganismStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s (want %s or %s)", kind, KindMemory, KindSQLite)
	}
}

// CloseIfSupported releases backends that hold resources.
func CloseIfSupported(store OrganismStore) error {
	if closer, ok := store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
