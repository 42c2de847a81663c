package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/server/auth"
	"github.com/dmitrijs2005/labandina/internal/server/metrics"
	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/dmitrijs2005/labandina/internal/server/services"
	"github.com/stretchr/testify/require"
)

// fakes embed the service interfaces; calling a method a test did not
// provide panics, which the recover middleware turns into a 500.

type fakeUsers struct {
	UserService

	registered struct{ email, username, password, fullName string }
	loginWith  [2]string
	logout     struct {
		claims  *auth.Claims
		refresh string
	}
	update models.UserUpdate

	user *models.User
	pair *services.TokenPair
	err  error
}

func (f *fakeUsers) Register(ctx context.Context, email, username, password, fullName string) (*models.User, *services.TokenPair, error) {
	f.registered.email, f.registered.username, f.registered.password, f.registered.fullName = email, username, password, fullName
	return f.user, f.pair, f.err
}

func (f *fakeUsers) Login(ctx context.Context, login, password string) (*services.TokenPair, error) {
	f.loginWith = [2]string{login, password}
	return f.pair, f.err
}

func (f *fakeUsers) RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	f.loginWith = [2]string{refreshToken, ""}
	return f.pair, f.err
}

func (f *fakeUsers) Logout(ctx context.Context, claims *auth.Claims, refreshToken string) error {
	f.logout.claims, f.logout.refresh = claims, refreshToken
	return f.err
}

func (f *fakeUsers) Me(ctx context.Context, identityID string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u := *f.user
	u.ID = identityID
	return &u, nil
}

func (f *fakeUsers) UpdateMe(ctx context.Context, identityID string, upd models.UserUpdate) (*models.User, error) {
	f.update = upd
	return f.user, f.err
}

func (f *fakeUsers) Get(ctx context.Context, id string) (*models.User, error) {
	return f.user, f.err
}

type fakeCompositions struct {
	CompositionService

	created   *models.Composition
	update    models.CompositionUpdate
	gotLimit  [2]int
	callerID  string
	resultErr error
}

func (f *fakeCompositions) Create(ctx context.Context, ownerID string, c *models.Composition) (*models.Composition, error) {
	f.callerID = ownerID
	c.ID, c.OwnerID = "c1", ownerID
	f.created = c
	return c, f.resultErr
}

func (f *fakeCompositions) Get(ctx context.Context, identityID, id string) (*models.Composition, error) {
	f.callerID = identityID
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	return &models.Composition{ID: id, OwnerID: identityID, Title: "Etude", CompositionData: `{"bars":4}`}, nil
}

func (f *fakeCompositions) ListMine(ctx context.Context, ownerID string, limit, offset int) ([]*models.Composition, error) {
	f.gotLimit = [2]int{limit, offset}
	return []*models.Composition{}, f.resultErr
}

func (f *fakeCompositions) Update(ctx context.Context, identityID, id string, upd models.CompositionUpdate) (*models.Composition, error) {
	f.update = upd
	if f.resultErr != nil {
		return nil, f.resultErr
	}
	return &models.Composition{ID: id, OwnerID: identityID, CompositionData: "{}"}, nil
}

func (f *fakeCompositions) Delete(ctx context.Context, identityID, id string) error {
	f.callerID = identityID
	return f.resultErr
}

type fakeKeyMappings struct {
	KeyMappingService

	name string
	data json.RawMessage
	err  error
}

func (f *fakeKeyMappings) Create(ctx context.Context, userID, name string, data json.RawMessage) (*models.KeyMapping, error) {
	f.name, f.data = name, data
	if f.err != nil {
		return nil, f.err
	}
	return &models.KeyMapping{ID: "k1", UserID: userID, Name: name, MappingData: data}, nil
}

func (f *fakeKeyMappings) SaveDefault(ctx context.Context, userID string, data json.RawMessage) (*models.KeyMapping, error) {
	f.data = data
	return &models.KeyMapping{ID: "k0", UserID: userID, Name: "default", MappingData: data}, f.err
}

func (f *fakeKeyMappings) GetDefault(ctx context.Context, userID string) (*models.KeyMapping, error) {
	return nil, f.err
}

type fakeRecordings struct {
	RecordingService

	filter  models.RecordingFilter
	created *models.Recording
	url     *services.MIDIURL
	err     error
}

func (f *fakeRecordings) Create(ctx context.Context, userID string, rec *models.Recording) (*models.Recording, error) {
	rec.ID, rec.UserID = "r1", userID
	f.created = rec
	return rec, f.err
}

func (f *fakeRecordings) List(ctx context.Context, userID string, filter models.RecordingFilter) (*models.RecordingPage, error) {
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return &models.RecordingPage{
		Recordings: []*models.Recording{{ID: "r1", UserID: userID, Title: "Take", MIDIKey: "k"}},
		Total:      1, Page: 1, PerPage: 20, TotalPages: 1,
	}, nil
}

func (f *fakeRecordings) MIDIUploadURL(ctx context.Context, identityID, id string) (*services.MIDIURL, error) {
	return f.url, f.err
}

func (f *fakeRecordings) MIDIDownloadURL(ctx context.Context, identityID, id string) (*services.MIDIURL, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.url, nil
}

type fakeSongs struct {
	SongService

	created    *models.Song
	filter     models.SongFilter
	conversion models.SongConversion
	callerID   string
	err        error
}

func (f *fakeSongs) Create(ctx context.Context, userID string, s *models.Song) (*models.Song, error) {
	s.ID, s.CreatedBy = "s1", userID
	f.created = s
	return s, f.err
}

func (f *fakeSongs) Get(ctx context.Context, id string) (*models.Song, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Song{ID: id, Title: "Twinkle", Difficulty: models.DifficultyBeginner}, nil
}

func (f *fakeSongs) List(ctx context.Context, filter models.SongFilter) ([]*models.Song, error) {
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return []*models.Song{{ID: "s1", CreatedBy: "u1", Title: "Ode"}}, nil
}

func (f *fakeSongs) Delete(ctx context.Context, identityID, id string) error {
	f.callerID = identityID
	return f.err
}

func (f *fakeSongs) ConvertRecording(ctx context.Context, identityID, recordingID string, opts models.SongConversion) (*models.Song, error) {
	f.callerID, f.conversion = identityID, opts
	if f.err != nil {
		return nil, f.err
	}
	return &models.Song{ID: "s2", CreatedBy: identityID, Title: opts.Title, Notes: []models.SongNote{{Key: "C4", Duration: 500}}}, nil
}

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return f.revoked[jti], f.err
}

type testEnv struct {
	router       http.Handler
	authority    *auth.Authority
	metrics      *metrics.Metrics
	users        *fakeUsers
	compositions *fakeCompositions
	keyMappings  *fakeKeyMappings
	recordings   *fakeRecordings
	songs        *fakeSongs
	revocations  *fakeRevocations
}

const testSecret = "router-test-secret"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	keys, err := auth.NewKeyring(testSecret, "", 0, time.Now)
	require.NoError(t, err)

	env := &testEnv{
		authority:    auth.NewAuthority(keys, time.Hour),
		metrics:      metrics.New(),
		users:        &fakeUsers{user: &models.User{ID: "u1", UserName: "alice", Email: "alice@example.com", IsActive: true}},
		compositions: &fakeCompositions{},
		keyMappings:  &fakeKeyMappings{},
		recordings:   &fakeRecordings{},
		songs:        &fakeSongs{},
		revocations:  &fakeRevocations{revoked: map[string]bool{}},
	}
	h := NewHandler(Deps{
		Authority:    env.authority,
		Users:        env.users,
		Compositions: env.compositions,
		KeyMappings:  env.keyMappings,
		Recordings:   env.recordings,
		Songs:        env.songs,
		Revocations:  env.revocations,
		Metrics:      env.metrics,
	})
	env.router = NewRouter(h, []string{"http://localhost:3000"})
	return env
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.authority.IssueToken(userID, 0)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) metricsText(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return env
}

var mapErrorInputs = []error{
	common.ErrForbidden,
	common.ErrorNotFound,
	fmt.Errorf("%w: title is required", common.ErrorValidation),
	common.ErrLoginAlreadyExists,
	common.ErrAlreadyExists,
	common.ErrorUnauthorized,
	common.ErrRefreshTokenExpired,
	common.ErrTokenExpired,
	common.ErrTokenRevoked,
	common.ErrUnauthenticated,
	errors.New("boom"),
}
