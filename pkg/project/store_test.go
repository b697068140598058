package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Create_RejectsInvalidSlug(t *testing.T) {
	s := New()
	_, err := s.Create("client-1", "Not Valid!", "My Project")
	assert.ErrorIs(t, err, ErrInvalidSlug)
}

func TestStore_Create_RejectsDuplicateSlugWithinClient(t *testing.T) {
	s := New()
	_, err := s.Create("client-1", "svc-a", "Service A")
	require.NoError(t, err)

	_, err = s.Create("client-1", "svc-a", "Service A Again")
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestStore_Create_AllowsSameSlugAcrossDifferentClients(t *testing.T) {
	s := New()
	_, err := s.Create("client-1", "svc-a", "Service A")
	require.NoError(t, err)

	_, err = s.Create("client-2", "svc-a", "Service A (client 2)")
	assert.NoError(t, err)
}

func TestStore_ListByClient_ReturnsOnlyThatClientsProjectsOldestFirst(t *testing.T) {
	s := New()
	p1, err := s.Create("client-1", "svc-a", "A")
	require.NoError(t, err)
	p2, err := s.Create("client-1", "svc-b", "B")
	require.NoError(t, err)
	_, err = s.Create("client-2", "svc-c", "C")
	require.NoError(t, err)

	list := s.ListByClient("client-1")
	require.Len(t, list, 2)
	assert.Equal(t, p1.ID, list[0].ID)
	assert.Equal(t, p2.ID, list[1].ID)
}

func TestStore_Delete_RemovesProject(t *testing.T) {
	s := New()
	p, err := s.Create("client-1", "svc-a", "A")
	require.NoError(t, err)

	require.NoError(t, s.Delete(p.ID))
	_, err = s.Get(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete_UnknownIDIsNotFound(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Delete("no-such-id"), ErrNotFound)
}
