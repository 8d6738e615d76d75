package pipeline

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/polycache/internal/domain"
)

// DuplicatesError reports natural keys seen more than once in one run.
type DuplicatesError struct {
	Resource string
	Keys     []string
}

func (e *DuplicatesError) Error() string {
	const shown = 5
	keys := e.Keys
	suffix := ""
	if len(keys) > shown {
		suffix = fmt.Sprintf(" (and %d more)", len(keys)-shown)
		keys = keys[:shown]
	}
	return fmt.Sprintf("pipeline: %d duplicate %s keys: %s%s",
		len(e.Keys), e.Resource, strings.Join(keys, ", "), suffix)
}

func (e *DuplicatesError) Unwrap() error { return domain.ErrDuplicateKey }

// batch aggregates the failures of a page's independent items into a
// *domain.BatchError. It returns nil when errs is empty.
func batch(op string, total int, errs []error) error {
	return domain.JoinBatch("pipeline: "+op, total, errs)
}

// keyTracker remembers the natural keys admitted during one run.
type keyTracker struct {
	resource string
	seen     map[string]struct{}
}

func newKeyTracker(resource string) *keyTracker {
	return &keyTracker{resource: resource, seen: make(map[string]struct{})}
}

// admit records keys, failing on an empty key or on any key already seen in
// this run or earlier in the same slice. Nothing is recorded on failure.
func (t *keyTracker) admit(keys []string) error {
	page := make(map[string]struct{}, len(keys))
	var dups []string
	for i, k := range keys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("pipeline: %s record %d: %w: empty key", t.resource, i, domain.ErrInvalidIdentifier)
		}
		_, inRun := t.seen[k]
		_, inPage := page[k]
		if inRun || inPage {
			dups = append(dups, k)
			continue
		}
		page[k] = struct{}{}
	}
	if len(dups) > 0 {
		return &DuplicatesError{Resource: t.resource, Keys: dups}
	}
	for k := range page {
		t.seen[k] = struct{}{}
	}
	return nil
}
