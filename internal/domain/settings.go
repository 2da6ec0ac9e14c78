package domain

import "net/url"

// RegionalCode is one selectable regional (phone country) code.
type RegionalCode struct {
	Code  string `toml:"code" json:"code"`
	Title string `toml:"title" json:"title"`
}

// Settings is the persisted launch configuration.
type Settings struct {
	// BaseEndpoint is the backend base URL every HTTP adapter resolves against.
	BaseEndpoint *url.URL

	// RegionalCodes is the ordered list of selectable regional codes.
	RegionalCodes []RegionalCode

	// IsFirstLaunch is true until the first launch has been marked finished.
	IsFirstLaunch bool
}
