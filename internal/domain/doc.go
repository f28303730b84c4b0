// Package domain defines the core types of the subway network service.
//
// The package has no storage or transport dependencies. Everything here
// operates on station ids; station records are only looked up when a line
// is rendered for display.
//
// # Core Types
//
// Station is a uniquely named stop.
//
// Section is an immutable directed edge (up station -> down station) with a
// positive distance.
//
// Topology is the engine that keeps one line's sections a single simple
// path. It supports adding a section (extending an end or splitting an
// existing section), removing a station (shrinking an end or merging the
// two sections around an interior station) and walking the path in order.
//
// Line is the aggregate: identity, name, color and one Topology.
//
// # Errors
//
// Failures are *Error values classified by ErrorKind: validation,
// not_found, invariant and conflict. Use IsKind to branch on them.
package domain
