package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kickoff-wellness/kickoff/internal/api"
)

// ─── API Client ─────────────────────────────────────────────────────────────
// Commands that read in-memory engine state talk to a running `kickoff serve`
// instead of opening the store.

type apiClient struct {
	base   string
	token  string
	client *http.Client
}

// newAPIClient targets addr, or the configured API host and port. Without
// an explicit token it uses KICKOFF_TOKEN, then mints a short-lived one for
// userKey when auth.jwt_secret is set.
func newAPIClient(addr, token, userKey string) (*apiClient, error) {
	if addr == "" {
		addr = "http://" + net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
	}
	if token == "" {
		token = os.Getenv("KICKOFF_TOKEN")
	}
	if token == "" {
		if auth := api.NewAuthenticator(cfg.Auth.JWTSecret); auth != nil {
			minted, err := auth.Issue(userKey, 5*time.Minute)
			if err != nil {
				return nil, fmt.Errorf("issue token: %w", err)
			}
			token = minted
		}
	}
	return &apiClient{
		base:   strings.TrimRight(addr, "/"),
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// do sends a body-less request and decodes a JSON reply into out.
// A 204 leaves out untouched.
func (c *apiClient) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("kickoff server not reachable at %s (is 'kickoff serve' running?): %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var body struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error.Message == "" {
			body.Error.Message = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, body.Error.Message)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
