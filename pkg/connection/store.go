// Package connection implements the connection & credential store (C1):
// the sole authority for persisting source endpoints, their auth material,
// and the VALID/INVALID state that C2 clients and C4 pollers read before
// every call.
package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jandamek/jervis/ent"
	"github.com/jandamek/jervis/ent/connection"
)

// ErrNotFound is returned when a connection id does not resolve.
var ErrNotFound = errors.New("connection not found")

// Store is a thin service over the ent client for Connection rows. It is
// the only writer of a Connection's state field; pollers and source
// clients only ever read through Get/List.
type Store struct {
	client *ent.Client
}

// New creates a connection store backed by client.
func New(client *ent.Client) *Store {
	return &Store{client: client}
}

// CreateParams are the fields needed to provision a new connection, mirroring
// config.ConnectionConfig plus the resolved credential material.
type CreateParams struct {
	Kind        string
	BaseURL     string
	AuthType    connection.AuthType
	Credentials string
	ClientID    string
	ProjectID   string // optional
}

// Create persists a new connection in VALID state.
func (s *Store) Create(ctx context.Context, params CreateParams) (*ent.Connection, error) {
	builder := s.client.Connection.Create().
		SetID(uuid.NewString()).
		SetKind(params.Kind).
		SetBaseURL(params.BaseURL).
		SetAuthType(params.AuthType).
		SetCredentials(params.Credentials).
		SetClientID(params.ClientID).
		SetState(connection.StateVALID)

	if params.ProjectID != "" {
		builder = builder.SetProjectID(params.ProjectID)
	}

	c, err := builder.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	return c, nil
}

// Get fetches a connection by id.
func (s *Store) Get(ctx context.Context, id string) (*ent.Connection, error) {
	c, err := s.client.Connection.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get connection %s: %w", id, err)
	}
	return c, nil
}

// ListValid returns every connection currently in VALID state, optionally
// filtered by kind. Pollers call this once per sweep to enumerate accounts.
func (s *Store) ListValid(ctx context.Context, kind string) ([]*ent.Connection, error) {
	q := s.client.Connection.Query().Where(connection.StateEQ(connection.StateVALID))
	if kind != "" {
		q = q.Where(connection.KindEQ(kind))
	}
	conns, err := q.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list valid connections: %w", err)
	}
	return conns, nil
}

// Invalidate transitions a connection to INVALID. Called by C2 clients on
// any observed authentication failure; subsequent polls skip the
// connection until an out-of-band action (a fresh Create or explicit
// Revalidate) restores it.
func (s *Store) Invalidate(ctx context.Context, id string) error {
	now := time.Now()
	_, err := s.client.Connection.UpdateOneID(id).
		SetState(connection.StateINVALID).
		SetInvalidatedAt(now).
		Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("invalidate connection %s: %w", id, err)
	}
	return nil
}

// Revalidate transitions a connection back to VALID, clearing invalidated_at.
// This is the out-of-band remediation action an operator takes to unstick it.
func (s *Store) Revalidate(ctx context.Context, id string) error {
	_, err := s.client.Connection.UpdateOneID(id).
		SetState(connection.StateVALID).
		ClearInvalidatedAt().
		Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("revalidate connection %s: %w", id, err)
	}
	return nil
}
