package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/models"
)

func newTestRegistry(t *testing.T) *CandidateRegistry {
	t.Helper()
	r, err := New(Config{})
	require.NoError(t, err)
	return r
}

func TestAddMintsID(t *testing.T) {
	r := newTestRegistry(t)

	candidate, err := r.Add(&models.Candidate{Name: "Ada Lovelace", Department: "CS"})
	require.NoError(t, err)

	assert.NotEmpty(t, candidate.ID)
	assert.True(t, r.Exists(candidate.ID))
	assert.Equal(t, 1, r.Count())
}

func TestAddKeepsProvidedID(t *testing.T) {
	r := newTestRegistry(t)

	candidate, err := r.Add(&models.Candidate{ID: "c1", Name: "Ada Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, "c1", candidate.ID)

	_, err = r.Add(&models.Candidate{ID: "c1", Name: "Grace Hopper"})
	assert.ErrorIs(t, err, ErrCandidateExists)
}

func TestAddRejectsEmptyName(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Add(&models.Candidate{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidCandidate)
}

func TestRemove(t *testing.T) {
	r := newTestRegistry(t)

	candidate, err := r.Add(&models.Candidate{Name: "Ada Lovelace"})
	require.NoError(t, err)

	require.NoError(t, r.Remove(candidate.ID))
	assert.False(t, r.Exists(candidate.ID))

	assert.ErrorIs(t, r.Remove(candidate.ID), ErrCandidateNotFound)
}

func TestListSortedByName(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Add(&models.Candidate{Name: "Zoe"})
	require.NoError(t, err)
	_, err = r.Add(&models.Candidate{Name: "Ada"})
	require.NoError(t, err)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Ada", list[0].Name)
	assert.Equal(t, "Zoe", list[1].Name)
}

func TestGetReturnsCopy(t *testing.T) {
	r := newTestRegistry(t)

	candidate, err := r.Add(&models.Candidate{Name: "Ada"})
	require.NoError(t, err)

	got, err := r.Get(candidate.ID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := r.Get(candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", again.Name)
}
