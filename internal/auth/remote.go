package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/macfarley/dream-weaver-backend/internal"
)

// RemoteProvider delegates token verification to an external identity
// service. It never issues tokens; the remote service owns that flow.
type RemoteProvider struct {
	AuthServiceURL string
	HTTPClient     *http.Client
	logger         internal.Logger
}

func NewRemoteProvider(url string, logger internal.Logger) *RemoteProvider {
	return &RemoteProvider{
		AuthServiceURL: url,
		HTTPClient:     &http.Client{Timeout: 5 * time.Second},
		logger:         logger,
	}
}

func (p *RemoteProvider) IssueToken(user *internal.User) (string, error) {
	return "", errors.New("auth: remote provider does not issue tokens")
}

func (p *RemoteProvider) VerifyToken(ctx context.Context, token string) (*internal.Identity, error) {
	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.AuthServiceURL, bytes.NewReader(payload))
	if err != nil {
		p.logger.Errorf("auth: failed to create verify request: %v", err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		p.logger.Errorf("auth: failed to call auth service: %v", err)
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		p.logger.Warnf("auth: auth service returned %d", resp.StatusCode)
		return nil, ErrInvalidToken
	}
	var ident internal.Identity
	if err := json.NewDecoder(resp.Body).Decode(&ident); err != nil {
		p.logger.Errorf("auth: failed to decode auth response: %v", err)
		return nil, err
	}
	if ident.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &ident, nil
}

var _ Provider = (*RemoteProvider)(nil)
