package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceGenerator_Sequence(t *testing.T) {
	gen := NewSequenceGenerator("s")

	assert.Equal(t, "s-1", gen.Generate())
	assert.Equal(t, "s-2", gen.Generate())
	assert.Equal(t, "s-3", gen.Generate())
}

func TestSequenceGenerator_EmptyPrefixDefault(t *testing.T) {
	gen := NewSequenceGenerator("")
	assert.Equal(t, "session-1", gen.Generate())
}

func TestSequenceGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceGenerator("t")

	done := make(chan map[string]bool)
	for i := 0; i < 10; i++ {
		go func() {
			local := make(map[string]bool)
			for j := 0; j < 100; j++ {
				local[gen.Generate()] = true
			}
			done <- local
		}()
	}

	all := make(map[string]bool)
	for i := 0; i < 10; i++ {
		for id := range <-done {
			assert.False(t, all[id], "duplicate id %s", id)
			all[id] = true
		}
	}
	assert.Len(t, all, 1000)
}
