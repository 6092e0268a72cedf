// Package spec defines the desired-state model for a managed cluster.
//
// A ClusterSpec describes everything the orchestrator converges on:
// account placement, network mode, node groups, add-ons, and team access
// bindings. Specs are loaded from YAML, validated on construction, and
// identified by a deterministic content hash that serves as the plan's
// idempotency key.
package spec
