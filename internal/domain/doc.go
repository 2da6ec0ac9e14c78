// Package domain contains the core entities and value objects for feedship.
//
// This package is the innermost layer. It has no dependencies on
// infrastructure concerns (HTTP, file system, logging) and holds only the
// data the launch sequence passes between collaborators.
//
// # Entities
//
//   - [Settings]: persisted launch configuration (base endpoint, regional codes, first-launch flag)
//   - [FeedID]: opaque identifier that keys every upload
//   - [Category]: one of the four independently uploaded data categories
//   - [UploadOutcome]: the result of one category upload
//   - [UploadBatch]: a size-bounded group of queued records sent in one request
//   - [ResolutionPolicy]: cache-first or network-only feed id resolution
//
// # Errors
//
// Every failure the launch sequence can observe maps to one sentinel in
// errors.go. [OpError] tags an underlying error with the operation that
// produced it so errors.Is matches both the kind and the cause.
package domain
