package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/bft-labs/feedship/internal/domain"
	"github.com/bft-labs/feedship/internal/ports"
)

// FeedIDService implements ports.FeedIDSource against the backend.
type FeedIDService struct {
	c      *client
	tokens ports.TokenSource
}

// NewFeedIDService creates a feed id lookup.
func NewFeedIDService(cc ClientConfig, tokens ports.TokenSource) *FeedIDService {
	return &FeedIDService{c: newClient(cc), tokens: tokens}
}

// FetchFeedID asks the backend for the feed id of the signed-in user.
func (s *FeedIDService) FetchFeedID(ctx context.Context) (domain.FeedID, error) {
	resp, err := s.c.do(ctx, http.MethodGet, bearer(ctx, s.tokens), nil, "v1", "feeds", "id")
	if err != nil {
		return "", fmt.Errorf("fetch feed id: %w", err)
	}

	// FeedId may come back as a number or a string.
	v := gjson.GetBytes(resp, "response.FeedId")
	if !v.Exists() || v.String() == "" {
		return "", fmt.Errorf("feed id response missing response.FeedId")
	}
	return domain.FeedID(v.String()), nil
}

func bearer(ctx context.Context, tokens ports.TokenSource) string {
	if tokens == nil {
		return ""
	}
	return tokens.AccessToken(ctx)
}
