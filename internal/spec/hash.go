package spec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Hash returns the spec's deterministic content hash. Identical specs hash
// identically; any field change produces a different value. The hash is the
// plan's idempotency key and is recorded in state snapshots.
func (s *ClusterSpec) Hash() string {
	return HashOf(s)
}

// ClusterEntityHash hashes only the cluster-level fields (account, region,
// network placement). Node groups, add-ons, and teams are separate resources
// with their own entity hashes; a change in them must not reclassify the
// cluster itself.
func (s *ClusterSpec) ClusterEntityHash() string {
	return HashOf(struct {
		Account string
		Region  string
		Network NetworkSpec
	}{s.Account, s.Region, s.Network})
}

// HashOf returns the canonical content hash of any spec entity.
// Struct fields marshal in declaration order, so the YAML encoding is a
// stable canonical form.
func HashOf(v any) string {
	data, err := yaml.Marshal(v)
	if err != nil {
		// Spec types contain only plain scalars and slices; marshalling
		// them cannot fail with well-formed input.
		panic(fmt.Sprintf("spec: marshal for hashing: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
