package eks

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/aws/smithy-go"

	"github.com/konverge-io/konverge/internal/provider"
)

// classify maps an EKS API error onto the adapter's failure taxonomy.
// Resource-in-use and throttling are retryable; parameter and permission
// problems are not.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var nf *types.ResourceNotFoundException
	if errors.As(err, &nf) {
		return provider.ErrNotFound
	}
	var nfe *types.NotFoundException
	if errors.As(err, &nfe) {
		return provider.ErrNotFound
	}

	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return provider.Transient(err)
	}
	var unavailable *types.ServiceUnavailableException
	if errors.As(err, &unavailable) {
		return provider.Transient(err)
	}
	var server *types.ServerException
	if errors.As(err, &server) {
		return provider.Transient(err)
	}

	var invalid *types.InvalidParameterException
	if errors.As(err, &invalid) {
		return provider.Permanent(err)
	}
	var request *types.InvalidRequestException
	if errors.As(err, &request) {
		return provider.Permanent(err)
	}
	var denied *types.AccessDeniedException
	if errors.As(err, &denied) {
		return provider.Permanent(err)
	}
	var limit *types.ResourceLimitExceededException
	if errors.As(err, &limit) {
		return provider.Permanent(err)
	}

	// Fall back to API error codes for conditions the SDK does not model
	// as typed exceptions, notably request throttling.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded":
			return provider.Transient(err)
		case "ResourceNotFoundException":
			return provider.ErrNotFound
		}
	}

	return provider.Permanent(err)
}
