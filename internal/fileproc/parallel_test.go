package fileproc

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapPreservesInputOrder(t *testing.T) {
	paths := []string{"c.go", "a.go", "b.go"}

	results := Map(paths, 2, func(p string) (string, error) {
		return strings.ToUpper(p), nil
	})

	assert.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
		assert.Equal(t, strings.ToUpper(paths[i]), r.Value)
		assert.NoError(t, r.Err)
	}
}

func TestMapCapturesErrors(t *testing.T) {
	boom := errors.New("boom")

	results := Map([]string{"good", "bad"}, 0, func(p string) (int, error) {
		if p == "bad" {
			return 0, boom
		}
		return 1, nil
	})

	assert.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].Value)
	assert.ErrorIs(t, results[1].Err, boom)
}

func TestMapEmptyInput(t *testing.T) {
	assert.Nil(t, Map(nil, 4, func(p string) (int, error) { return 0, nil }))
}

func TestDefaultWorkersPositive(t *testing.T) {
	assert.Greater(t, DefaultWorkers(), 0)
}
