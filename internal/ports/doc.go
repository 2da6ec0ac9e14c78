// Package ports defines the interfaces that connect the launch sequence to
// infrastructure adapters.
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters, internal/queue) implement them
// with concrete implementations (TOML and sealed files, HTTP, SQLite).
//
// # Port Interfaces
//
//   - [SettingsStore]: persisted launch settings and the first-launch flag
//   - [CredentialStore]: secure key-value storage for the authentication secret
//   - [TokenService]: access token renewal
//   - [TokenSource]: the current access token for outgoing requests
//   - [SessionState]: whether a user session exists
//   - [FeedIDSource]: network lookup of the feed id
//   - [FeedIDCache]: local storage of the last resolved feed id
//   - [FeedIDResolver]: policy-driven feed id resolution
//   - [FeedUploader]: the four category uploads
//   - [Router]: presentation of the initial screen
//   - [HTTPClient]: HTTP request abstraction for dependency injection
package ports
