package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/dbx"
	"github.com/dmitrijs2005/labandina/internal/server/auth"
	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/repomanager"
)

const maxKeyMappingNameLen = 100

type KeyMappingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewKeyMappingService(db *sql.DB, m repomanager.RepositoryManager) *KeyMappingService {
	return &KeyMappingService{db: db, repomanager: m}
}

func validateMappingName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxKeyMappingNameLen {
		return "", validationError("name must be 1 to %d characters", maxKeyMappingNameLen)
	}
	return name, nil
}

// validateMappingData accepts only a JSON object: keyboard key to note.
func validateMappingData(data json.RawMessage) error {
	var obj map[string]json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &obj) != nil || obj == nil {
		return validationError("mapping_data must be a JSON object")
	}
	return nil
}

// Create stores a new named mapping for userID. The name "default" is taken
// once per user; a second one yields common.ErrAlreadyExists.
func (s *KeyMappingService) Create(ctx context.Context, userID, name string, data json.RawMessage) (*models.KeyMapping, error) {
	name, err := validateMappingName(name)
	if err != nil {
		return nil, err
	}
	if err := validateMappingData(data); err != nil {
		return nil, err
	}
	m, err := s.repomanager.KeyMappings(s.db).Create(ctx, &models.KeyMapping{
		UserID:      userID,
		Name:        name,
		MappingData: data,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating key mapping: %w", err)
	}
	return m, nil
}

func (s *KeyMappingService) List(ctx context.Context, userID string) ([]*models.KeyMapping, error) {
	return s.repomanager.KeyMappings(s.db).ListByUser(ctx, userID)
}

func (s *KeyMappingService) Update(ctx context.Context, identityID, id string, upd models.KeyMappingUpdate) (*models.KeyMapping, error) {
	var m *models.KeyMapping
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.KeyMappings(tx)
		var err error
		if m, err = repo.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		if !auth.AuthorizeOwner(identityID, m.UserID) {
			return common.ErrForbidden
		}

		if upd.Name != nil {
			if m.Name, err = validateMappingName(*upd.Name); err != nil {
				return err
			}
		}
		if upd.MappingData != nil {
			if err := validateMappingData(upd.MappingData); err != nil {
				return err
			}
			m.MappingData = upd.MappingData
		}
		if err := repo.Update(ctx, m); err != nil {
			return fmt.Errorf("error updating key mapping: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *KeyMappingService) Delete(ctx context.Context, identityID, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.KeyMappings(tx)
		m, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !auth.AuthorizeOwner(identityID, m.UserID) {
			return common.ErrForbidden
		}
		return repo.Delete(ctx, id)
	})
}

// SaveDefault creates or replaces the user's default mapping.
func (s *KeyMappingService) SaveDefault(ctx context.Context, userID string, data json.RawMessage) (*models.KeyMapping, error) {
	if err := validateMappingData(data); err != nil {
		return nil, err
	}
	m, err := s.repomanager.KeyMappings(s.db).UpsertDefault(ctx, userID, data)
	if err != nil {
		return nil, fmt.Errorf("error saving default key mapping: %w", err)
	}
	return m, nil
}

// GetDefault returns the user's default mapping or common.ErrorNotFound.
func (s *KeyMappingService) GetDefault(ctx context.Context, userID string) (*models.KeyMapping, error) {
	return s.repomanager.KeyMappings(s.db).GetByName(ctx, userID, common.DefaultKeyMappingName)
}
