package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gnome-garden/application/ports"
	"gnome-garden/domain/garden"
	"gnome-garden/domain/player"
)

func TestProfileRoundTripAndVersioning(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.LoadProfile(ctx, "u1")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	p := player.NewProfile("u1")
	p.Garden = garden.GardenProgress{{Category: garden.Flowers, Slot: 1, AssetID: "rose"}}
	require.NoError(t, s.SaveProfile(ctx, p))
	assert.Equal(t, int64(1), p.Version)

	loaded, err := s.LoadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, p.Garden, loaded.Garden)

	loaded.Garden[0].AssetID = "changed"
	again, err := s.LoadProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "rose", again.Garden[0].AssetID)

	require.NoError(t, s.SaveProfile(ctx, loaded))
	err = s.SaveProfile(ctx, again)
	assert.ErrorIs(t, err, ports.ErrVersionConflict)
}

func TestSaveProfileRejectsInvalidState(t *testing.T) {
	s := NewStore()
	p := player.NewProfile("u1")
	p.Garden = garden.GardenProgress{
		{Category: garden.Flowers, Slot: 1, AssetID: "a"},
		{Category: garden.Flowers, Slot: 1, AssetID: "b"},
	}
	err := s.SaveProfile(context.Background(), p)
	assert.ErrorIs(t, err, player.ErrInvalidState)
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore()
	s.now = func() time.Time { return now }

	live := player.NewSession("live", "u1")
	live.ExpiresAt = now.Add(time.Minute)
	live.Next = &garden.Spot{Category: garden.Path, ID: 1}
	require.NoError(t, s.SaveSession(ctx, live))

	stale := player.NewSession("stale", "u1")
	stale.ExpiresAt = now.Add(-time.Minute)
	require.NoError(t, s.SaveSession(ctx, stale))

	got, err := s.LoadSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, live.Next, got.Next)
	assert.NotSame(t, live.Next, got.Next)

	_, err = s.LoadSession(ctx, "stale")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
}
