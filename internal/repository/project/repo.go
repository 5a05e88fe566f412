// Package project reads project rows written by the CRUD subsystem.
// The engine never mutates projects.
package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/pawa80/search-intelligence-suite/internal/db"
	"github.com/pawa80/search-intelligence-suite/internal/domain"
)

// store is the consumer interface for projects (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Repo implements read-only project access.
type Repo struct {
	store  store
	prefix string
}

// New creates a project repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Get returns a project by ID.
func (r *Repo) Get(ctx context.Context, id string) (domain.Project, error) {
	key := fmt.Sprintf("%sproject:%s", r.prefix, id)

	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Project{}, domain.ErrProjectNotFound
		}
		return domain.Project{}, fmt.Errorf("get project %s: %w", id, err)
	}

	return domain.Project{
		ID:          fields["id"],
		WorkspaceID: fields["workspace_id"],
		Name:        fields["name"],
		Domain:      fields["domain"],
		Country:     fields["country"],
		Language:    fields["language"],
	}, nil
}
