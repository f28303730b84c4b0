// Package handler implements HTTP request handlers for the subway API.
//
// # Handlers
//
// StationHandler manages stations, LineHandler manages lines and their
// sections, NetworkHandler imports and exports whole networks. Each has a
// Register method that adds its routes to a ServeMux using method-qualified
// patterns.
//
// Middleware provides panic recovery, CORS and request logging.
//
// # Response Format
//
// Success responses return JSON with 200, or 201 plus a Location header for
// creations. Errors return {error, details, kind}; the status follows the
// domain error kind: validation 400, not_found 404, conflict 409, anything
// else 500.
//
// # Caching
//
// GET /api/lines/{id} returns an ETag derived from the line's topology
// fingerprint and honours If-None-Match.
package handler
