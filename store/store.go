// Package store persists the vault items and the saved reports of a workspace.
//
// Every backend implements Repository. Items are kept most-recent-first:
// Append puts the new item in front. Backends wrap their failures as
// persistence errors, callers decide whether to degrade or propagate.
package store

import (
	"fmt"

	"github.com/etnz/finsight"
)

// Keyed is an item with a stable identifier.
type Keyed interface {
	Key() string
}

// Repository is a most-recent-first list of items.
type Repository[T Keyed] interface {
	// List returns every item, most recent first.
	List() ([]T, error)
	// Get returns the item with the given key, false if there is none.
	Get(key string) (T, bool, error)
	// Append prepends an item.
	Append(item T) error
	// Delete removes the item with the given key, it is not an error if there is none.
	Delete(key string) error
	// Clear removes every item.
	Clear() error
}

// Namespaces of a workspace.
const (
	Reports = "finsight_reports"
	Vault   = "finsight_memory_vault"
)

// Version of the persisted payloads.
const Version = 1

func persistence(op string, err error) error {
	return finsight.NewError(finsight.KindPersistence, op, err)
}

func persistencef(op, format string, args ...any) error {
	return finsight.NewError(finsight.KindPersistence, op, fmt.Errorf(format, args...))
}

// find returns the index of key in items, -1 if absent.
func find[T Keyed](items []T, key string) int {
	for i, it := range items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}
