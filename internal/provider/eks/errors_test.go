package eks

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"

	"github.com/konverge-io/konverge/internal/provider"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		notFound  bool
		transient bool
	}{
		{name: "nil", err: nil},
		{name: "resource not found", err: &types.ResourceNotFoundException{}, notFound: true},
		{name: "not found", err: &types.NotFoundException{}, notFound: true},
		{name: "resource in use", err: &types.ResourceInUseException{}, transient: true},
		{name: "service unavailable", err: &types.ServiceUnavailableException{}, transient: true},
		{name: "server exception", err: &types.ServerException{}, transient: true},
		{name: "invalid parameter", err: &types.InvalidParameterException{}},
		{name: "invalid request", err: &types.InvalidRequestException{}},
		{name: "access denied", err: &types.AccessDeniedException{}},
		{name: "resource limit", err: &types.ResourceLimitExceededException{}},
		{name: "throttling by code", err: &smithy.GenericAPIError{Code: "ThrottlingException"}, transient: true},
		{name: "too many requests by code", err: &smithy.GenericAPIError{Code: "TooManyRequestsException"}, transient: true},
		{name: "not found by code", err: &smithy.GenericAPIError{Code: "ResourceNotFoundException"}, notFound: true},
		{name: "unknown api error", err: &smithy.GenericAPIError{Code: "SomethingElse"}},
		{name: "plain error", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}

			assert.Equal(t, tt.notFound, provider.IsNotFound(got), "not-found classification")
			assert.Equal(t, tt.transient, provider.IsTransient(got), "transient classification")
		})
	}
}

func TestClassify_SurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create cluster prod: %w", &types.ResourceInUseException{})
	assert.True(t, provider.IsTransient(classify(wrapped)))
}
