// Package permission implements the rule-based access control used by
// authorization checks.
//
// A role maps to a list of rules; a rule grants one action on one subject.
// The reserved action "manage" and the reserved subject "all" are wildcards,
// so a role holding {manage, all} is allowed everything. Lookups are exact
// string matches apart from the wildcards.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. The role
// table is fixed at construction and immutable thereafter, which is what
// makes Can safe for concurrent use without locks.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import authcore, jwt, or session.
//   - Mutate the rule set after construction.
package permission
