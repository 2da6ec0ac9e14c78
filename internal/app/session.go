package app

import (
	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/ports"
	"github.com/bft-labs/feedship/pkg/log"
)

// CredentialSession reports a session whenever a refresh token is stored.
type CredentialSession struct {
	creds  ports.CredentialStore
	logger log.Logger
}

// NewCredentialSession creates a session check over creds.
func NewCredentialSession(creds ports.CredentialStore, logger log.Logger) *CredentialSession {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &CredentialSession{creds: creds, logger: logger}
}

// IsLoggedIn reports whether a refresh token is stored. A store that cannot
// be read counts as logged out.
func (s *CredentialSession) IsLoggedIn() bool {
	secret, ok, err := s.creds.Get(domain.CredentialRefreshToken)
	if err != nil {
		s.logger.Error("session check failed",
			log.Op(opSessionCheck),
			log.Err(domain.NewOpError(opSessionCheck, domain.ErrSessionCheck, err)))
		return false
	}
	return ok && secret != ""
}
