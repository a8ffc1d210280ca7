package anthropic

import (
	"context"

	"github.com/rotisserie/eris"
)

// CachedSystem returns a single system block carrying a cache breakpoint.
// An empty ttl uses the API default of five minutes.
func CachedSystem(text, ttl string) []SystemBlock {
	return []SystemBlock{{Text: text, CacheControl: &CacheControl{TTL: ttl}}}
}

// Prime sends req once so later batch items sharing its system blocks read
// from a warm prompt cache.
func Prime(ctx context.Context, client Client, req MessageRequest) (*MessageResponse, error) {
	resp, err := client.CreateMessage(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: prime cache")
	}
	return resp, nil
}
