package filter

import (
	"context"
)

// MarketFilter rejects tracks Spotify reports as unplayable in the
// configured market.
type MarketFilter struct{}

func (f *MarketFilter) Name() string {
	return "market_filter"
}

func (f *MarketFilter) Description() string {
	return "Skips tracks that are not playable in the configured market"
}

func (f *MarketFilter) ReturnCodes() []string {
	return []string{"market_restriction"}
}

func (f *MarketFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *MarketFilter) Check(ctx context.Context, c Candidate) Result {
	if !c.Track.Playable {
		return Reject("market_restriction")
	}
	return Accept()
}

func init() {
	Register("market_filter", func() Filter {
		return &MarketFilter{}
	})
}
