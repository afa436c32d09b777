package sandbox_test

import (
	"math"
	"testing"

	"github.com/programme-lv/judge/internal/sandbox"
	"github.com/stretchr/testify/assert"
)

func TestMemoryBytesSaturates(t *testing.T) {
	assert.Equal(t, int64(256<<20), sandbox.Limits{MemoryKiB: 256 << 10}.MemoryBytes())
	assert.Equal(t, int64(0), sandbox.Limits{}.MemoryBytes())
	assert.Equal(t, int64(math.MaxInt64), sandbox.Limits{MemoryKiB: math.MaxInt64 / 512}.MemoryBytes())
}
