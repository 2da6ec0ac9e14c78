package domain

import "fmt"

// FeedID is the opaque identifier that associates queued data with a backend
// upload destination.
type FeedID string

// String returns the identifier.
func (f FeedID) String() string { return string(f) }

// Empty reports whether the identifier is unset.
func (f FeedID) Empty() bool { return f == "" }

// Category is one independently uploaded class of queued data.
type Category string

const (
	CategoryAssets    Category = "assets"
	CategoryEvents    Category = "events"
	CategoryContacts  Category = "contacts"
	CategoryReminders Category = "reminders"
)

// Categories lists every upload category in fan-out order.
func Categories() []Category {
	return []Category{CategoryAssets, CategoryEvents, CategoryContacts, CategoryReminders}
}

// ParseCategory converts a name into a Category.
func ParseCategory(name string) (Category, error) {
	for _, c := range Categories() {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", name)
}

// UploadOutcome is the result of uploading one category.
// Outcomes are reported individually and never combined.
type UploadOutcome struct {
	Category Category
	FeedID   FeedID

	// Items is the number of queued records acknowledged by the backend.
	Items int

	// Err is nil on success.
	Err error
}

// Success reports whether the upload succeeded.
func (o UploadOutcome) Success() bool { return o.Err == nil }

// ResolutionPolicy governs how a feed id is obtained.
type ResolutionPolicy int

const (
	// CacheFirst returns a cached, unexpired identifier when one exists and
	// falls back to the network otherwise.
	CacheFirst ResolutionPolicy = iota

	// NetworkOnly always asks the backend and refreshes the cache on success.
	NetworkOnly
)

// String returns a human-readable representation of the policy.
func (p ResolutionPolicy) String() string {
	switch p {
	case CacheFirst:
		return "cache_first"
	case NetworkOnly:
		return "network_only"
	default:
		return "unknown"
	}
}
