// Package api is a small client for the La Bandina REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/netx"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is a non-2xx answer of the API.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap lets callers test 401 answers with errors.Is(err, ErrUnauthorized).
func (e *Error) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// PresignedURL is a short-lived object storage link for a recording's MIDI
// file.
type PresignedURL struct {
	URL       string `json:"url"`
	Method    string `json:"method"`
	Key       string `json:"key"`
	ExpiresIn int64  `json:"expires_in"`
}

// MIDIContentType must accompany uploads to a presigned MIDI url.
const MIDIContentType = "audio/midi"

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://127.0.0.1:8000".
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Register(ctx context.Context, email, username, password, fullName string) (*User, *Tokens, error) {
	in := map[string]string{
		"email":     email,
		"username":  username,
		"password":  password,
		"full_name": fullName,
	}
	var out struct {
		User User `json:"user"`
		Tokens
	}
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", in, &out); err != nil {
		return nil, nil, err
	}
	return &out.User, &out.Tokens, nil
}

func (c *Client) Login(ctx context.Context, login, password string) (*Tokens, error) {
	var out Tokens
	in := map[string]string{"login": login, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	var out Tokens
	in := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/users/me", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the access token and deletes refreshToken server side.
// refreshToken may be empty.
func (c *Client) Logout(ctx context.Context, accessToken, refreshToken string) error {
	var in any
	if refreshToken != "" {
		in = map[string]string{"refresh_token": refreshToken}
	}
	return c.do(ctx, http.MethodPost, "/auth/logout", accessToken, in, nil)
}

func (c *Client) MIDIUploadURL(ctx context.Context, accessToken, recordingID string) (*PresignedURL, error) {
	var out PresignedURL
	path := "/recordings/" + url.PathEscape(recordingID) + "/midi/upload-url"
	if err := c.do(ctx, http.MethodPost, path, accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadMIDI stores data in the bucket through a presigned url.
func (c *Client) UploadMIDI(ctx context.Context, u *PresignedURL, data []byte) error {
	if err := netx.PutPresigned(ctx, c.http, u.URL, MIDIContentType, data); err != nil {
		return fmt.Errorf("upload midi: %w", err)
	}
	return nil
}

// envelope is the success wrapper of every API answer.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
