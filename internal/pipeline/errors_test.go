package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyTracker(t *testing.T) {
	kt := newKeyTracker("market")
	require.NoError(t, kt.admit([]string{"a", "b"}))

	err := kt.admit([]string{"c", "a", "d", "d"})
	var dupErr *DuplicatesError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, []string{"a", "d"}, dupErr.Keys)

	// A rejected page records nothing.
	require.NoError(t, kt.admit([]string{"c"}))

	assert.ErrorIs(t, kt.admit([]string{" "}), domain.ErrInvalidIdentifier)
}

func TestDuplicatesErrorMessage(t *testing.T) {
	err := &DuplicatesError{Resource: "event", Keys: []string{"a", "b", "c", "d", "e", "f", "g"}}
	assert.Equal(t, "pipeline: 7 duplicate event keys: a, b, c, d, e (and 2 more)", err.Error())
}

func TestBatchError(t *testing.T) {
	assert.NoError(t, batch("convert", 3, nil))

	err := batch("convert", 3, []error{fmt.Errorf("x: %w", domain.ErrInvalidDecimal)})
	assert.ErrorIs(t, err, domain.ErrInvalidDecimal)
	assert.Contains(t, err.Error(), "convert: 1 of 3 failed")
}
