package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/dbx"
	"github.com/dmitrijs2005/labandina/internal/server/auth"
	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/compositions"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/repomanager"
)

const (
	defaultListLimit = 100
	maxListLimit     = 100
)

// normalizeLimit clamps limit/offset list parameters.
func normalizeLimit(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

type CompositionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewCompositionService(db *sql.DB, m repomanager.RepositoryManager) *CompositionService {
	return &CompositionService{db: db, repomanager: m}
}

func validateComposition(c *models.Composition) error {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return validationError("title is required")
	}
	if !json.Valid([]byte(c.CompositionData)) {
		return validationError("composition_data must be valid JSON")
	}
	return nil
}

// Create stores c as a new composition owned by ownerID.
func (s *CompositionService) Create(ctx context.Context, ownerID string, c *models.Composition) (*models.Composition, error) {
	c.OwnerID = ownerID
	if err := validateComposition(c); err != nil {
		return nil, err
	}
	created, err := s.repomanager.Compositions(s.db).Create(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("error creating composition: %w", err)
	}
	return created, nil
}

// Get returns composition id if identityID owns it or it is public.
func (s *CompositionService) Get(ctx context.Context, identityID, id string) (*models.Composition, error) {
	c, err := s.repomanager.Compositions(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsPublic && !auth.AuthorizeOwner(identityID, c.OwnerID) {
		return nil, common.ErrForbidden
	}
	return c, nil
}

func (s *CompositionService) ListMine(ctx context.Context, ownerID string, limit, offset int) ([]*models.Composition, error) {
	limit, offset = normalizeLimit(limit, offset)
	return s.repomanager.Compositions(s.db).ListByOwner(ctx, ownerID, limit, offset)
}

func (s *CompositionService) ListPublic(ctx context.Context, limit, offset int) ([]*models.Composition, error) {
	limit, offset = normalizeLimit(limit, offset)
	return s.repomanager.Compositions(s.db).ListPublic(ctx, limit, offset)
}

// ownedComposition locks id for the running transaction and checks that
// identityID owns it.
func ownedComposition(ctx context.Context, repo compositions.Repository, identityID, id string) (*models.Composition, error) {
	c, err := repo.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.AuthorizeOwner(identityID, c.OwnerID) {
		return nil, common.ErrForbidden
	}
	return c, nil
}

// Update applies the non-nil fields of upd. Only the owner may update.
func (s *CompositionService) Update(ctx context.Context, identityID, id string, upd models.CompositionUpdate) (*models.Composition, error) {
	var c *models.Composition
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Compositions(tx)
		var err error
		if c, err = ownedComposition(ctx, repo, identityID, id); err != nil {
			return err
		}

		if upd.Title != nil {
			c.Title = *upd.Title
		}
		if upd.Description != nil {
			c.Description = *upd.Description
		}
		if upd.CompositionData != nil {
			c.CompositionData = *upd.CompositionData
		}
		if upd.IsPublic != nil {
			c.IsPublic = *upd.IsPublic
		}
		if err := validateComposition(c); err != nil {
			return err
		}
		return repo.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes composition id. Only the owner may delete.
func (s *CompositionService) Delete(ctx context.Context, identityID, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Compositions(tx)
		if _, err := ownedComposition(ctx, repo, identityID, id); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
}
