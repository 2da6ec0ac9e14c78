package ports

import "github.com/bft-labs/feedship/internal/domain"

// SettingsStore reads persisted launch settings.
type SettingsStore interface {
	// Settings returns the stored settings. A store that has never been
	// written returns defaults with IsFirstLaunch set.
	Settings() (domain.Settings, error)

	// FinishFirstLaunch records that the first launch has completed.
	// Calling it again is a no-op.
	FinishFirstLaunch() error
}

// CredentialStore is secure key-value storage for authentication secrets.
type CredentialStore interface {
	// Get returns the secret stored under key and whether it exists.
	Get(key string) (string, bool, error)

	// Set stores secret under key.
	Set(key, secret string) error

	// Clear removes every stored secret.
	Clear() error
}

// SessionState reports whether a user is currently authenticated.
type SessionState interface {
	IsLoggedIn() bool
}

// Router presents screens. The launch sequence only asks for the initial one.
type Router interface {
	RouteToInitial()
}
