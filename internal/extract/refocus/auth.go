package refocus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pyplyn/pyplyn/internal/remote"
)

var _ remote.Authenticator = Authenticator{}

// Authenticator implements remote.Authenticator for the Refocus reference
// protocol: POST a username/password JSON body to /login and extract a
// bearer token from the JSON response.
type Authenticator struct{}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges username/password for a bearer token.
func (Authenticator) Authenticate(ctx context.Context, httpClient *http.Client, endpoint, username string, password []byte) (string, error) {
	body := loginRequest{Username: username, Password: string(password)}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("refocus: marshal login request: %w", err)
	}

	u := strings.TrimSuffix(endpoint, "/") + "/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(raw)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("refocus: login transport error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("refocus: login status %d", resp.StatusCode)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("refocus: decode login response: %w", err)
	}
	if lr.Token == "" {
		return "", fmt.Errorf("refocus: empty token in login response")
	}
	return lr.Token, nil
}

// Apply attaches the bearer token to an outgoing request.
func (Authenticator) Apply(req *http.Request, token string) {
	if token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}
