package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	instagramBaseURL = "https://www.instagram.com"
	instagramUA      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	requestTimeout = 30 * time.Second

	// Randomized pause before each upload, mimicking a human operator.
	uploadDelayMin = 5 * time.Second
	uploadDelayMax = 10 * time.Second
)

// InstagramClient publishes photos through the Instagram web API, keeping
// the logged-in session in a per-agent JSON file so restarts do not force a
// fresh login.
type InstagramClient struct {
	username    string
	password    string
	sessionFile string
	client      *http.Client
	userID      string
	csrfToken   string
	rng         *rand.Rand
	logger      *slog.Logger
}

var _ Publisher = (*InstagramClient)(nil)

// sessionState is the persisted session file layout.
type sessionState struct {
	UserID    string `json:"user_id"`
	CSRFToken string `json:"csrf_token"`
	Cookies   []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"cookies"`
}

// NewInstagramClient creates a publisher for one account. The session file
// lives under sessionDir, named after the username.
func NewInstagramClient(username, password, sessionDir string, logger *slog.Logger) *InstagramClient {
	jar, _ := cookiejar.New(nil)
	return &InstagramClient{
		username:    username,
		password:    password,
		sessionFile: filepath.Join(sessionDir, username+".json"),
		client:      &http.Client{Jar: jar, Timeout: requestTimeout},
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:      logger,
	}
}

// ConnectionStatus reports whether the client holds a validated session.
func (c *InstagramClient) ConnectionStatus() ConnectionStatus {
	if c.userID != "" {
		return StatusConnected
	}
	return StatusDisconnected
}

// Authenticate restores the saved session and validates it, falling back to
// a full login when the session is missing or stale. A successful full
// login replaces the session file.
func (c *InstagramClient) Authenticate(ctx context.Context) error {
	if err := c.restoreSession(ctx); err == nil {
		c.logger.Info("restored saved session", "account", c.username)
		return nil
	} else {
		c.logger.Warn("saved session unusable, performing full login", "account", c.username, "error", err)
	}

	if err := c.login(ctx); err != nil {
		c.userID = ""
		return fmt.Errorf("instagram login for %s: %w", c.username, err)
	}

	if err := c.saveSession(); err != nil {
		c.logger.Warn("could not persist session", "account", c.username, "error", err)
	}
	c.logger.Info("full login complete, session saved", "account", c.username)
	return nil
}

// Publish uploads the photo with its caption after a short randomized
// delay. The client must be authenticated.
func (c *InstagramClient) Publish(ctx context.Context, imagePNG []byte, caption string) error {
	if c.userID == "" {
		return fmt.Errorf("not logged in")
	}

	delay := uploadDelayMin + time.Duration(c.rng.Int63n(int64(uploadDelayMax-uploadDelayMin)))
	c.logger.Info("pausing before upload", "account", c.username, "delay", delay.Round(100*time.Millisecond))
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	uploadID, err := c.uploadPhoto(ctx, imagePNG)
	if err != nil {
		return fmt.Errorf("photo upload: %w", err)
	}

	if err := c.configureMedia(ctx, uploadID, caption); err != nil {
		return fmt.Errorf("configure media: %w", err)
	}

	c.logger.Info("post published", "account", c.username)
	return nil
}

func (c *InstagramClient) restoreSession(ctx context.Context) error {
	raw, err := os.ReadFile(c.sessionFile)
	if err != nil {
		return err
	}

	var state sessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return fmt.Errorf("parse session file: %w", err)
	}
	if state.UserID == "" {
		return fmt.Errorf("session file has no user id")
	}

	base, _ := url.Parse(instagramBaseURL)
	cookies := make([]*http.Cookie, 0, len(state.Cookies))
	for _, ck := range state.Cookies {
		cookies = append(cookies, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: "/"})
	}
	c.client.Jar.SetCookies(base, cookies)
	c.userID = state.UserID
	c.csrfToken = state.CSRFToken

	if err := c.verifySession(ctx); err != nil {
		c.userID = ""
		return err
	}
	return nil
}

// verifySession makes a cheap authenticated request to confirm the session
// is still accepted.
func (c *InstagramClient) verifySession(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/accounts/edit/?__a=1&__d=dis", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("session check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *InstagramClient) login(ctx context.Context) error {
	if err := c.fetchCSRFToken(ctx); err != nil {
		return fmt.Errorf("fetch csrf token: %w", err)
	}

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), c.password))

	req, err := c.newRequest(ctx, http.MethodPost, "/accounts/login/ajax/", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		Authenticated bool   `json:"authenticated"`
		UserID        string `json:"userId"`
		Message       string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if !result.Authenticated {
		if result.Message != "" {
			return fmt.Errorf("login refused: %s", result.Message)
		}
		return fmt.Errorf("login refused")
	}

	c.userID = result.UserID
	return nil
}

// fetchCSRFToken loads the landing page to obtain the csrftoken cookie the
// login endpoint requires.
func (c *InstagramClient) fetchCSRFToken(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/accounts/login/", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	base, _ := url.Parse(instagramBaseURL)
	for _, ck := range c.client.Jar.Cookies(base) {
		if ck.Name == "csrftoken" {
			c.csrfToken = ck.Value
			return nil
		}
	}
	return fmt.Errorf("no csrftoken cookie in response")
}

func (c *InstagramClient) uploadPhoto(ctx context.Context, imagePNG []byte) (string, error) {
	uploadID := strconv.FormatInt(time.Now().UnixMilli(), 10)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("upload_id", uploadID); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("photo", "photo.png")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(imagePNG); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/rupload_igphoto/"+uploadID, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	return uploadID, nil
}

func (c *InstagramClient) configureMedia(ctx context.Context, uploadID, caption string) error {
	form := url.Values{}
	form.Set("upload_id", uploadID)
	form.Set("caption", caption)

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/media/configure/", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("configure returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *InstagramClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, instagramBaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", instagramUA)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.csrfToken != "" {
		req.Header.Set("X-CSRFToken", c.csrfToken)
	}
	return req, nil
}

func (c *InstagramClient) saveSession() error {
	base, _ := url.Parse(instagramBaseURL)

	state := sessionState{UserID: c.userID, CSRFToken: c.csrfToken}
	for _, ck := range c.client.Jar.Cookies(base) {
		state.Cookies = append(state.Cookies, struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		}{Name: ck.Name, Value: ck.Value})
	}

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.sessionFile), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.sessionFile, raw, 0o600)
}
