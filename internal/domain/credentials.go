package domain

// Keys under which authentication secrets live in the credential store.
const (
	CredentialRefreshToken = "refresh_token"
	CredentialAPIKey       = "api_key"

	// CredentialAccessToken holds the last issued access token so a later
	// process can authenticate before its own refresh completes.
	CredentialAccessToken = "access_token"

	// CredentialAccessTokenExpiry holds the RFC 3339 expiry of the stored
	// access token, empty when the token carries none.
	CredentialAccessTokenExpiry = "access_token_expires_at"
)
