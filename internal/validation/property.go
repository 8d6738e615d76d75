// Package validation audits the local cache. Properties are named checks
// run over every record of a keyspace inside one snapshot; their failures
// are aggregated into a domain.Report.
package validation

import (
	"context"
	"reflect"

	"github.com/alanyoungcy/polycache/internal/domain"
)

// Property checks one record of type T. It may keep state across the
// records of a scan, so a fresh instance is created for every check run.
// snap is the snapshot being scanned and may be used for lookups in other
// keyspaces. Properties without state are empty structs.
type Property[T any] interface {
	Check(ctx context.Context, key []byte, record *T, snap domain.Snapshot) (bool, error)
}

// PropertyName is the name a property is registered and reported under:
// the name of its type with pointers removed.
func PropertyName(p any) string {
	t := reflect.TypeOf(p)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}
