package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGraphKeyStaysUnderUserPrefix(t *testing.T) {
	assert.Equal(t, "user-graphs/u-1/graph.json", GraphKey("u-1", "graph.json"))
	assert.Equal(t, "user-graphs/u-2/a_b-c.1.json", GraphKey("u-2", "a_b-c.1.json"))
}
