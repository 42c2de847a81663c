package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/labandina/internal/client/api"
	"github.com/dmitrijs2005/labandina/internal/client/config"
)

// apiClient is the part of api.Client the commands use.
type apiClient interface {
	Register(ctx context.Context, email, username, password, fullName string) (*api.User, *api.Tokens, error)
	Login(ctx context.Context, login, password string) (*api.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*api.Tokens, error)
	Me(ctx context.Context, accessToken string) (*api.User, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	MIDIUploadURL(ctx context.Context, accessToken, recordingID string) (*api.PresignedURL, error)
	UploadMIDI(ctx context.Context, u *api.PresignedURL, data []byte) error
}

type App struct {
	config  *config.Config
	api     apiClient
	session *Session
	reader  *bufio.Reader
	out     io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	s, err := loadSession(c.SessionFile)
	if err != nil {
		return nil, err
	}

	return &App{
		config:  c,
		api:     api.New(c.ServerURL, c.RequestTimeout),
		session: s,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	log.Printf("La Bandina CLI, server %s (type 'help' for commands)", a.config.ServerURL)
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) getStatus() string {
	if a.session == nil || a.session.Username == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.session.Username)
}
