package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/pmobuilder/internal/core"
)

func TestSessionStore_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessionStore(time.Hour)
	s.now = func() time.Time { return now }

	a := s.Create()
	b := s.Create()
	assert.NotEqual(t, a.ID, b.ID)

	now = now.Add(50 * time.Minute)
	require.True(t, s.Exists(a.ID), "use refreshes the expiry")

	now = now.Add(30 * time.Minute)
	assert.True(t, s.Exists(a.ID))
	assert.False(t, s.Exists(b.ID))

	_, err := s.Sections(b.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Len())
}

func TestSessionStore_Update(t *testing.T) {
	s := NewSessionStore(time.Hour)
	sess := s.Create()

	frag := &core.SpecimenFragment{SpecimenInfo: map[string]core.Record{"SP1": {"specimen_id": "SP1"}}}
	require.NoError(t, s.Update(sess.ID, func(sec *core.Sections) { sec.Specimens = frag }))

	sections, err := s.Sections(sess.ID)
	require.NoError(t, err)
	assert.Same(t, frag, sections.Specimens)

	info, err := s.Info(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"specimen"}, info.Present)
	assert.Equal(t, []string{"panel", "microhaplotype", "experiment"}, info.Missing)

	assert.ErrorIs(t, s.Update("missing", func(*core.Sections) {}), ErrSessionNotFound)
	require.NoError(t, s.Delete(sess.ID))
	assert.ErrorIs(t, s.Delete(sess.ID), ErrSessionNotFound)
}
