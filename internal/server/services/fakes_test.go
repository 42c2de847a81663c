package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/dbx"
	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/compositions"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/keymappings"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/recordings"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/songs"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

// store is one in-memory database shared by every fake repository.
type store struct {
	mu     sync.Mutex
	nextID int

	users        map[string]*models.User
	refresh      map[string]*models.RefreshToken
	compositions map[string]*models.Composition
	mappings     map[string]*models.KeyMapping
	recordings   map[string]*models.Recording
	songs        map[string]*models.Song

	// lockedReads counts GetByIDForUpdate calls across repositories.
	lockedReads int

	failWith error
}

func newStore() *store {
	return &store{
		users:        map[string]*models.User{},
		refresh:      map[string]*models.RefreshToken{},
		compositions: map[string]*models.Composition{},
		mappings:     map[string]*models.KeyMapping{},
		recordings:   map[string]*models.Recording{},
		songs:        map[string]*models.Song{},
	}
}

func (s *store) id() string {
	s.nextID++
	return fmt.Sprintf("id-%d", s.nextID)
}

// fakeRepoManager hands out repositories over the same store for any DBTX.
type fakeRepoManager struct{ s *store }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return &memUsers{m.s} }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return &memRefresh{m.s} }
func (m *fakeRepoManager) Compositions(dbx.DBTX) compositions.Repository   { return &memCompositions{m.s} }
func (m *fakeRepoManager) KeyMappings(dbx.DBTX) keymappings.Repository     { return &memMappings{m.s} }
func (m *fakeRepoManager) Recordings(dbx.DBTX) recordings.Repository       { return &memRecordings{m.s} }
func (m *fakeRepoManager) Songs(dbx.DBTX) songs.Repository                 { return &memSongs{m.s} }

// --- users ---

type memUsers struct{ s *store }

func (r *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	for _, x := range r.s.users {
		if strings.EqualFold(x.Email, u.Email) || x.UserName == u.UserName {
			return nil, common.ErrLoginAlreadyExists
		}
	}
	c := *u
	c.ID = r.s.id()
	c.IsActive = true
	r.s.users[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memUsers) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	for _, x := range r.s.users {
		if strings.EqualFold(x.Email, login) || x.UserName == login {
			c := *x
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *x
	return &c, nil
}

func (r *memUsers) Update(ctx context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.users {
		if x.ID != u.ID && (strings.EqualFold(x.Email, u.Email) || x.UserName == u.UserName) {
			return nil, common.ErrLoginAlreadyExists
		}
	}
	c := *u
	r.s.users[u.ID] = &c
	out := c
	return &out, nil
}

// --- refresh tokens ---

type memRefresh struct{ s *store }

func (r *memRefresh) Create(ctx context.Context, userID, token string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.refresh[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: expiresAt}
	return nil
}

func (r *memRefresh) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.refresh[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *t
	return &c, nil
}

func (r *memRefresh) Delete(ctx context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.refresh, token)
	return nil
}

func (r *memRefresh) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, t := range r.s.refresh {
		if t.UserID == userID {
			delete(r.s.refresh, k)
			n++
		}
	}
	return n, nil
}

// --- compositions ---

type memCompositions struct{ s *store }

func (r *memCompositions) Create(ctx context.Context, c *models.Composition) (*models.Composition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	cp.ID = r.s.id()
	r.s.compositions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memCompositions) GetByIDForUpdate(ctx context.Context, id string) (*models.Composition, error) {
	r.s.mu.Lock()
	r.s.lockedReads++
	r.s.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r *memCompositions) GetByID(ctx context.Context, id string) (*models.Composition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.compositions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCompositions) list(keep func(*models.Composition) bool, limit, offset int) []*models.Composition {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Composition{}
	for _, c := range r.s.compositions {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return []*models.Composition{}
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *memCompositions) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Composition, error) {
	return r.list(func(c *models.Composition) bool { return c.OwnerID == ownerID }, limit, offset), nil
}

func (r *memCompositions) ListPublic(ctx context.Context, limit, offset int) ([]*models.Composition, error) {
	return r.list(func(c *models.Composition) bool { return c.IsPublic }, limit, offset), nil
}

func (r *memCompositions) Update(ctx context.Context, c *models.Composition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.compositions[c.ID] = &cp
	return nil
}

func (r *memCompositions) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.compositions[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.compositions, id)
	return nil
}

// --- key mappings ---

type memMappings struct{ s *store }

func (r *memMappings) Create(ctx context.Context, m *models.KeyMapping) (*models.KeyMapping, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.Name == common.DefaultKeyMappingName {
		for _, x := range r.s.mappings {
			if x.UserID == m.UserID && x.Name == m.Name {
				return nil, common.ErrAlreadyExists
			}
		}
	}
	cp := *m
	cp.ID = r.s.id()
	r.s.mappings[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memMappings) GetByIDForUpdate(ctx context.Context, id string) (*models.KeyMapping, error) {
	r.s.mu.Lock()
	r.s.lockedReads++
	r.s.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r *memMappings) GetByID(ctx context.Context, id string) (*models.KeyMapping, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.mappings[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMappings) GetByName(ctx context.Context, userID, name string) (*models.KeyMapping, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.mappings {
		if m.UserID == userID && m.Name == name {
			cp := *m
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memMappings) ListByUser(ctx context.Context, userID string) ([]*models.KeyMapping, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.KeyMapping{}
	for _, m := range r.s.mappings {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memMappings) Update(ctx context.Context, m *models.KeyMapping) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *m
	r.s.mappings[m.ID] = &cp
	return nil
}

func (r *memMappings) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.mappings, id)
	return nil
}

func (r *memMappings) UpsertDefault(ctx context.Context, userID string, data json.RawMessage) (*models.KeyMapping, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.mappings {
		if m.UserID == userID && m.Name == common.DefaultKeyMappingName {
			m.MappingData = data
			cp := *m
			return &cp, nil
		}
	}
	m := &models.KeyMapping{ID: r.s.id(), UserID: userID, Name: common.DefaultKeyMappingName, MappingData: data}
	r.s.mappings[m.ID] = m
	cp := *m
	return &cp, nil
}

// --- recordings ---

type memRecordings struct{ s *store }

func (r *memRecordings) Create(ctx context.Context, rec *models.Recording) (*models.Recording, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *rec
	cp.ID = r.s.id()
	r.s.recordings[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memRecordings) GetByIDForUpdate(ctx context.Context, id string) (*models.Recording, error) {
	r.s.mu.Lock()
	r.s.lockedReads++
	r.s.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r *memRecordings) GetByID(ctx context.Context, id string) (*models.Recording, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.recordings[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *memRecordings) List(ctx context.Context, userID string, f models.RecordingFilter) ([]*models.Recording, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []*models.Recording{}
	for _, rec := range r.s.recordings {
		if rec.UserID == userID && (f.Category == "" || rec.Category == f.Category) {
			cp := *rec
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	off := (f.Page - 1) * f.PerPage
	if off >= total {
		return []*models.Recording{}, total, nil
	}
	page := all[off:]
	if len(page) > f.PerPage {
		page = page[:f.PerPage]
	}
	return page, total, nil
}

func (r *memRecordings) Categories(ctx context.Context, userID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, rec := range r.s.recordings {
		if rec.UserID == userID && !seen[rec.Category] {
			seen[rec.Category] = true
			out = append(out, rec.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memRecordings) Update(ctx context.Context, rec *models.Recording) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *rec
	r.s.recordings[rec.ID] = &cp
	return nil
}

func (r *memRecordings) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.recordings, id)
	return nil
}

func (r *memRecordings) SetMIDIKey(ctx context.Context, id, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.recordings[id]
	if !ok {
		return common.ErrorNotFound
	}
	rec.MIDIKey = key
	return nil
}

// --- songs ---

type memSongs struct{ s *store }

func (r *memSongs) Create(ctx context.Context, song *models.Song) (*models.Song, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failWith != nil {
		return nil, r.s.failWith
	}
	cp := *song
	cp.ID = r.s.id()
	r.s.songs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memSongs) GetByIDForUpdate(ctx context.Context, id string) (*models.Song, error) {
	r.s.mu.Lock()
	r.s.lockedReads++
	r.s.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r *memSongs) GetByID(ctx context.Context, id string) (*models.Song, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	song, ok := r.s.songs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *song
	return &cp, nil
}

func (r *memSongs) List(ctx context.Context, f models.SongFilter) ([]*models.Song, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Song{}
	for _, song := range r.s.songs {
		if (f.Category == "" || song.Category == f.Category) && (f.Difficulty == "" || song.Difficulty == f.Difficulty) {
			cp := *song
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Offset >= len(out) {
		return []*models.Song{}, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *memSongs) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.songs[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.songs, id)
	return nil
}
