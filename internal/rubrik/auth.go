package rubrik

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/logger"
)

// refreshMargin is how long before expiry a service account token is renewed.
const refreshMargin = 60 * time.Second

type serviceAccountSession struct {
	Token          string `json:"token"`
	SessionID      string `json:"sessionId"`
	ExpirationTime string `json:"expirationTime"`
}

// serviceAccountTokens exchanges a client id/secret for a bearer token and
// renews it shortly before it expires. It is owned by a single Session.
type serviceAccountTokens struct {
	client   *Client
	clientID string
	secret   string
	log      logger.Logger

	mu      sync.Mutex
	token   string
	expires time.Time
	now     func() time.Time
}

func newServiceAccountTokens(c *Client, clientID, secret string, log logger.Logger) *serviceAccountTokens {
	return &serviceAccountTokens{
		client:   c,
		clientID: clientID,
		secret:   secret,
		log:      log,
		now:      time.Now,
	}
}

func (s *serviceAccountTokens) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && (s.expires.IsZero() || s.expires.Sub(s.now()) > refreshMargin) {
		return s.token, nil
	}
	if err := s.exchange(ctx); err != nil {
		return "", err
	}
	return s.token, nil
}

func (s *serviceAccountTokens) exchange(ctx context.Context) error {
	body := map[string]string{
		"serviceAccountId": s.clientID,
		"secret":           s.secret,
	}
	var resp serviceAccountSession
	if err := s.client.do(ctx, http.MethodPost, V1, "/service_account/session", body, &resp, false); err != nil {
		return err
	}
	if resp.Token == "" {
		return errs.RequestFailed("decode", nil, "service account session returned no token")
	}

	s.token = resp.Token
	s.expires = tokenExpiry(resp.Token, resp.ExpirationTime)
	s.log.Debug("Service account token issued", "session", resp.SessionID, "expires", s.expires)
	return nil
}

// revoke ends the service account session. Callers log and ignore failures.
func (s *serviceAccountTokens) revoke(ctx context.Context) error {
	s.mu.Lock()
	issued := s.token != ""
	s.mu.Unlock()
	if !issued {
		return nil
	}
	return s.client.Delete(ctx, V1, "/session/me", nil)
}

// tokenExpiry reads the JWT exp claim, falling back to the expirationTime
// field. A zero time means the token is not refreshed.
func tokenExpiry(token, expirationTime string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser(jwt.WithoutClaimsValidation()).ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if expirationTime != "" {
		if t, err := time.Parse(time.RFC3339, expirationTime); err == nil {
			return t
		}
	}
	return time.Time{}
}
