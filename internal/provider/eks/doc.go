// Package eks implements the provider adapter against AWS EKS.
//
// Clusters map to EKS clusters, node groups to managed node groups, add-ons
// to EKS add-ons, and team bindings to EKS access entries with associated
// access policies. Idempotency tokens are passed through as the API's
// client request tokens, so duplicate deliveries of the same change step
// have at most one effect.
//
// The adapter does not design networks: both network modes require the
// caller to name the subnets the cluster and its node groups are placed in.
package eks
