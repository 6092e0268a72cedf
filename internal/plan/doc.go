// Package plan diffs a desired ClusterSpec against recorded and observed
// state and produces an ordered change plan.
//
// Every entity is classified create, update, delete, or noop, then arranged
// on an explicit dependency graph: node groups, add-ons, and team bindings
// depend on the cluster, and add-ons additionally on their declared
// prerequisites. The emitted step order is a topological sort with a
// deterministic tie-break by ascending resource id. User-declared add-on
// cycles are rejected up front, before any provider mutation.
package plan
