package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus_EmptyState(t *testing.T) {
	opts, _ := testFixture(t)

	require.NoError(t, Status(context.Background(), opts))
}

func TestStatus_AfterApply(t *testing.T) {
	opts, _ := testFixture(t)
	require.NoError(t, Apply(context.Background(), opts))

	require.NoError(t, Status(context.Background(), opts))
}

func TestStatus_MissingSpecFile(t *testing.T) {
	opts, _ := testFixture(t)
	opts.SpecPath = opts.SpecPath + ".absent"

	require.Error(t, Status(context.Background(), opts))
}
