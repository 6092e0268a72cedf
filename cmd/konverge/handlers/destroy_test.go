package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konverge-io/konverge/internal/provider"
)

func TestDestroy_RemovesEverything(t *testing.T) {
	opts, adapter := testFixture(t)
	require.NoError(t, Apply(context.Background(), opts))

	require.NoError(t, Destroy(context.Background(), opts))

	_, err := adapter.DescribeCluster(context.Background(), "prod")
	assert.ErrorIs(t, err, provider.ErrNotFound)
	assert.Equal(t, 1, adapter.CallCount("delete_cluster"))
	assert.Equal(t, 2, adapter.CallCount("remove_addon"))
}

func TestDestroy_NothingRecorded(t *testing.T) {
	opts, adapter := testFixture(t)

	require.NoError(t, Destroy(context.Background(), opts))
	assert.Zero(t, adapter.CallCount("delete_cluster"))
}

func TestDestroy_Rerunnable(t *testing.T) {
	opts, _ := testFixture(t)
	require.NoError(t, Apply(context.Background(), opts))

	require.NoError(t, Destroy(context.Background(), opts))
	require.NoError(t, Destroy(context.Background(), opts), "second destroy is a no-op")
}
