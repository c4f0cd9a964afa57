//go:build !sqlite

package storage

import "fmt"

func DefaultStoreKind() string {
	return KindMemory
}

func newSQLiteOrganismStore(_ string) (OrganismStore, error) {
	return nil, fmt.Errorf("sqlite backend unavailable in this build; rebuild with -tags sqlite")
}
