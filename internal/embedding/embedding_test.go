package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeterministic_SameInputSameVector(t *testing.T) {
	e := NewDeterministic(64, true, 7)
	v1, err := e.EmbedBatch(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	v2, err := e.EmbedBatch(context.Background(), []string{"hello world"})
	require.NoError(t, err)
	require.Equal(t, v1, v2)
}

func TestDeterministic_DifferentInputDifferentVector(t *testing.T) {
	e := NewDeterministic(64, false, 0)
	v1, _ := e.EmbedBatch(context.Background(), []string{"alpha"})
	v2, _ := e.EmbedBatch(context.Background(), []string{"beta"})
	require.NotEqual(t, v1, v2)
}

func TestDeterministic_Normalized(t *testing.T) {
	e := NewDeterministic(32, true, 1)
	v, _ := e.EmbedBatch(context.Background(), []string{"some text to embed"})
	var sum float64
	for _, x := range v[0] {
		sum += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, sum, 0.01)
}

func TestValidDimension(t *testing.T) {
	require.True(t, ValidDimension(1536))
	require.True(t, ValidDimension(768))
	require.False(t, ValidDimension(42))
}
