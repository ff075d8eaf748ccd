package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/showtime/internal/domain/song"
	"github.com/osa030/showtime/internal/infra/config"
	"github.com/osa030/showtime/internal/infra/spotify"
)

func TestMarketFilter_Check(t *testing.T) {
	f := &MarketFilter{}

	assert.True(t, f.Check(context.Background(), Candidate{Track: spotify.Track{Playable: true}}).Accepted)

	result := f.Check(context.Background(), Candidate{Track: spotify.Track{Playable: false}})
	assert.False(t, result.Accepted)
	assert.Equal(t, "market_restriction", result.Code)
}

func TestDurationLimitFilter_Check(t *testing.T) {
	tests := []struct {
		name          string
		minMinutes    float64
		maxMinutes    float64
		trackDuration time.Duration
		shouldReject  bool
	}{
		{name: "within limits", minMinutes: 2, maxMinutes: 5, trackDuration: 3 * time.Minute},
		{name: "too short", minMinutes: 3, trackDuration: 2 * time.Minute, shouldReject: true},
		{name: "too long", minMinutes: 1, maxMinutes: 5, trackDuration: 6 * time.Minute, shouldReject: true},
		{name: "exact min", minMinutes: 3, trackDuration: 3 * time.Minute},
		{name: "exact max", minMinutes: 1, maxMinutes: 5, trackDuration: 5 * time.Minute},
		{name: "no max", trackDuration: 40 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			f.config = &DurationLimitConfig{
				MinMinutes: tt.minMinutes,
				MaxMinutes: tt.maxMinutes,
			}

			result := f.Check(context.Background(), Candidate{Track: spotify.Track{Duration: tt.trackDuration}})
			assert.Equal(t, !tt.shouldReject, result.Accepted)
			if tt.shouldReject {
				assert.Equal(t, "duration_limit_exceeded", result.Code)
			}
		})
	}
}

func TestDurationLimitFilter_Unconfigured(t *testing.T) {
	f := NewDurationLimitFilter()
	assert.True(t, f.Check(context.Background(), Candidate{Track: spotify.Track{Duration: time.Hour}}).Accepted)
}

func TestDurationLimitFilter_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
		wantMax  float64
	}{
		{name: "defaults", settings: nil, wantMax: 15},
		{name: "explicit", settings: map[string]any{"min_minutes": 1, "max_minutes": 8}, wantMax: 8},
		{name: "string values", settings: map[string]any{"max_minutes": "6.5"}, wantMax: 6.5},
		{name: "negative", settings: map[string]any{"min_minutes": -1}, wantErr: true},
		{name: "min above max", settings: map[string]any{"min_minutes": 9, "max_minutes": 8}, wantErr: true},
		{name: "not a number", settings: map[string]any{"max_minutes": "long"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			err := f.ValidateConfig(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMax, f.config.MaxMinutes)
		})
	}
}

func TestChain_Execute(t *testing.T) {
	c := NewChain()
	c.Add(&MarketFilter{})
	c.Add(&DuplicateSongFilter{})

	library := []song.Song{{Title: "Zamba de mi esperanza", Authors: "Los Chalchaleros"}}

	tests := []struct {
		name     string
		track    spotify.Track
		accepted bool
		code     string
	}{
		{
			name:     "new song",
			track:    spotify.Track{Name: "La López Pereyra", Artists: []string{"Los Chalchaleros"}, Playable: true},
			accepted: true,
		},
		{
			name:  "first rejection wins",
			track: spotify.Track{Name: "Zamba de mi esperanza", Artists: []string{"Los Chalchaleros"}, Playable: false},
			code:  "market_restriction",
		},
		{
			name:  "duplicate",
			track: spotify.Track{Name: "Zamba de mi esperanza - Remastered", Artists: []string{"Los Chalchaleros"}, Playable: true},
			code:  "duplicate_song",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := c.Execute(context.Background(), Candidate{Track: tt.track, Library: library})
			assert.Equal(t, tt.accepted, result.Accepted)
			assert.Equal(t, tt.code, result.Code)
		})
	}
}

func TestChain_Nil(t *testing.T) {
	var c *Chain
	assert.True(t, c.Execute(context.Background(), Candidate{}).Accepted)
	assert.Empty(t, c.Filters())
}

func TestNewChainFromConfig(t *testing.T) {
	c, err := NewChainFromConfig(config.ImportConfig{Filters: map[string]config.FilterConfig{
		"market_filter":         {Enabled: true},
		"duplicate_song_filter": {Enabled: true},
		"duration_limit_filter": {Enabled: false},
	}})
	require.NoError(t, err)

	var names []string
	for _, f := range c.Filters() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"duplicate_song_filter", "market_filter"}, names)

	_, err = NewChainFromConfig(config.ImportConfig{Filters: map[string]config.FilterConfig{
		"kicked_listener_filter": {Enabled: true},
	}})
	assert.Error(t, err)

	_, err = NewChainFromConfig(config.ImportConfig{Filters: map[string]config.FilterConfig{
		"duration_limit_filter": {Enabled: true, Settings: map[string]any{"min_minutes": -2}},
	}})
	assert.Error(t, err)

	c, err = NewChainFromConfig(config.ImportConfig{})
	require.NoError(t, err)
	assert.Empty(t, c.Filters())
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"duplicate_song_filter", "duration_limit_filter", "market_filter"}, Names())
	for name, factory := range GetRegistered() {
		f := factory()
		assert.Equal(t, name, f.Name())
		assert.NotEmpty(t, f.Description())
		assert.NotEmpty(t, f.ReturnCodes())
	}
}
