package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const apiPrefix = "/api/v1/users"

// User is the public profile returned by the server.
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// RegisterRequest describes a new account. AvatarPath is required by the
// server; CoverImagePath is optional. Both name local files.
type RegisterRequest struct {
	Username       string
	Email          string
	FullName       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// APIClient talks to the RecipeHub HTTP API. It is safe for concurrent use.
//
// Besides the cookie jar the client keeps the token pair from the last
// login or refresh and sends the access token as a Bearer header, since
// Secure cookies are not replayed over plain http.
type APIClient struct {
	baseURL string
	http    *http.Client

	mu     sync.Mutex
	tokens tokenPair
}

// NewAPIClient returns a client for the server at baseURL with a fresh
// cookie jar. timeout bounds every request; zero means no limit.
func NewAPIClient(baseURL string, timeout time.Duration) (*APIClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

func (c *APIClient) Register(ctx context.Context, r RegisterRequest) (*User, error) {
	fields := map[string]string{
		"username": r.Username,
		"email":    r.Email,
		"fullName": r.FullName,
		"password": r.Password,
	}
	files := map[string]string{"avatar": r.AvatarPath}
	if r.CoverImagePath != "" {
		files["coverImage"] = r.CoverImagePath
	}

	var u User
	if err := c.multipart(ctx, http.MethodPost, "/register", fields, files, &u, false); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login accepts either a username or an email as identity.
func (c *APIClient) Login(ctx context.Context, identity, password string) (*User, error) {
	body := map[string]string{"password": password}
	if strings.Contains(identity, "@") {
		body["email"] = identity
	} else {
		body["username"] = identity
	}

	var out struct {
		User *User `json:"user"`
		tokenPair
	}
	if err := c.doJSON(ctx, http.MethodPost, "/login", body, &out, false); err != nil {
		return nil, err
	}
	c.setTokens(out.tokenPair)
	return out.User, nil
}

// Refresh rotates the session. The refresh token goes in the body; the
// server prefers its cookie when the jar holds one.
func (c *APIClient) Refresh(ctx context.Context) error {
	c.mu.Lock()
	body, err := json.Marshal(map[string]string{"refreshToken": c.tokens.RefreshToken})
	c.mu.Unlock()
	if err != nil {
		return err
	}

	var out tokenPair
	if err := c.do(ctx, http.MethodPost, "/refresh-token", body, "application/json", &out); err != nil {
		return err
	}
	c.setTokens(out)
	return nil
}

// Logout ends the session on the server and forgets the local tokens.
func (c *APIClient) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/logout", nil, nil, true)
	c.setTokens(tokenPair{})
	return err
}

// LoggedIn reports whether the client holds a session from Login.
func (c *APIClient) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens.AccessToken != ""
}

func (c *APIClient) setTokens(p tokenPair) {
	c.mu.Lock()
	c.tokens = p
	c.mu.Unlock()
}

func (c *APIClient) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.doJSON(ctx, http.MethodGet, "/current-user", nil, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *APIClient) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{"oldPassword": oldPassword, "newPassword": newPassword}
	return c.doJSON(ctx, http.MethodPost, "/change-password", body, nil, true)
}

// UpdateAccountDetails changes full name and/or email. Empty values are
// left unchanged by the server.
func (c *APIClient) UpdateAccountDetails(ctx context.Context, fullName, email string) (*User, error) {
	body := map[string]string{"fullName": fullName, "email": email}
	var u User
	if err := c.doJSON(ctx, http.MethodPatch, "/update-acc-details", body, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *APIClient) UpdateAvatar(ctx context.Context, path string) (*User, error) {
	return c.updateMedia(ctx, "/update-avatar", "avatar", path)
}

func (c *APIClient) UpdateCoverImage(ctx context.Context, path string) (*User, error) {
	return c.updateMedia(ctx, "/update-cover-image", "coverImage", path)
}

func (c *APIClient) updateMedia(ctx context.Context, route, field, path string) (*User, error) {
	var u User
	if err := c.multipart(ctx, http.MethodPatch, route, nil, map[string]string{field: path}, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *APIClient) doJSON(ctx context.Context, method, route string, body, out any, secured bool) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	send := func() error {
		return c.do(ctx, method, route, payload, "application/json", out)
	}
	return c.withRefresh(ctx, secured, send)
}

func (c *APIClient) multipart(ctx context.Context, method, route string, fields, files map[string]string, out any, secured bool) error {
	payload, contentType, err := buildMultipart(fields, files)
	if err != nil {
		return err
	}

	send := func() error {
		return c.do(ctx, method, route, payload, contentType, out)
	}
	return c.withRefresh(ctx, secured, send)
}

// withRefresh retries a secured call once after rotating the session when
// the first attempt is rejected as unauthorized.
func (c *APIClient) withRefresh(ctx context.Context, secured bool, send func() error) error {
	err := send()
	if !secured || !errors.Is(err, ErrUnauthorized) {
		return err
	}
	if rerr := c.Refresh(ctx); rerr != nil {
		return err
	}
	return send()
}

func (c *APIClient) do(ctx context.Context, method, route string, payload []byte, contentType string, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+route, body)
	if err != nil {
		return err
	}
	if contentType != "" && payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	c.mu.Lock()
	if c.tokens.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.tokens.AccessToken)
	}
	c.mu.Unlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

func buildMultipart(fields, files map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	for field, path := range files {
		if path == "" {
			continue
		}
		if err := attach(w, field, path); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func attach(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
