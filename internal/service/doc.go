// Package service implements business logic for the subway network service.
//
// Services coordinate between the HTTP handlers and the repository layer,
// enforcing business rules and publishing events.
//
// # Services
//
// StationService creates, lists and deletes stations. A station still used
// by a line cannot be deleted.
//
// LineService manages lines and their sections. Every section change is one
// load-apply-save cycle on the line's topology: mutations of the same line
// are serialised by a per-line lock, and the save is guarded by the line's
// version so concurrent writers from other processes are detected and the
// cycle retried. A line that loses its last section is deleted.
//
// NetworkService imports and exports whole networks through the codec
// package (YAML, JSON, XLSX).
//
// StationRegistry resolves station ids for display through an LRU cache.
//
// # Event System
//
// All mutations publish events via EventBus for real-time updates to
// connected clients via Server-Sent Events (SSE).
package service
