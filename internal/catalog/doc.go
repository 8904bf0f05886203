// Package catalog persists package records and points of interest in
// SQLite. It owns the state and transition vocabulary of the publication
// pipeline and exposes the filtered queries and narrow field setters the
// transition engine and merge protocol rely on. Transactional single-field
// updates are the only cross-process coordination primitive in the system;
// the merge protocol depends on their atomicity.
package catalog
