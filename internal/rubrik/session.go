package rubrik

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rbkoracle/internal/config"
	"rbkoracle/internal/errs"
	"rbkoracle/internal/logger"
)

const teardownTimeout = 30 * time.Second

// Session is an authenticated appliance connection plus the cluster identity
// fetched at connect time. Only this package mutates it.
type Session struct {
	*Client

	serviceAccount *serviceAccountTokens

	clusterID   string
	clusterName string
	version     ClusterVersion
	timezone    string
	location    *time.Location
	caps        Capabilities
	log         logger.Logger
}

// Options configure Connect.
type Options struct {
	Insecure    bool
	HTTPTimeout time.Duration
	UserAgent   string
	Logger      logger.Logger
}

type clusterInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	Timezone struct {
		Timezone string `json:"timezone"`
	} `json:"timezone"`
}

// Connect authenticates and loads cluster identity, version and timezone.
func Connect(ctx context.Context, creds *config.Credentials, opts Options) (*Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNullLogger()
	}

	client := NewClient(creds.NodeIP, ClientOptions{
		Insecure:  opts.Insecure,
		Timeout:   opts.HTTPTimeout,
		RequestID: uuid.NewString(),
		UserAgent: opts.UserAgent,
		Logger:    log,
	})

	s := &Session{Client: client, log: log}

	switch creds.Mode() {
	case config.AuthToken:
		client.tokens = staticToken(creds.Token)
	case config.AuthServiceAccount:
		s.serviceAccount = newServiceAccountTokens(client, creds.ClientID, creds.ClientSecret, log)
		client.tokens = s.serviceAccount
	case config.AuthBasic:
		client.username = creds.Username
		client.password = creds.Password
	}

	log.Debug("Connecting to appliance", "endpoint", client.BaseURL(), "auth", creds.Mode().String(), "request_id", client.requestID)

	var info clusterInfo
	if err := client.Get(ctx, V1, "/cluster/me", &info); err != nil {
		s.Teardown(ctx)
		return nil, err
	}

	v, err := ParseClusterVersion(info.Version)
	if err != nil {
		s.Teardown(ctx)
		return nil, errs.Config("%v", err)
	}

	loc, err := time.LoadLocation(info.Timezone.Timezone)
	if err != nil || info.Timezone.Timezone == "" {
		s.Teardown(ctx)
		return nil, errs.Config("cluster %s reports unknown timezone %q", info.Name, info.Timezone.Timezone)
	}

	s.clusterID = info.ID
	s.clusterName = info.Name
	s.version = v
	s.timezone = info.Timezone.Timezone
	s.location = loc
	s.caps = CapabilitiesFor(v)

	log.Info("Connected to cluster", "cluster", info.Name, "version", v.String(), "timezone", s.timezone)
	return s, nil
}

// Teardown revokes a service account session. Failures are logged, never returned.
func (s *Session) Teardown(ctx context.Context) {
	if s == nil || s.serviceAccount == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()

	if err := s.serviceAccount.revoke(ctx); err != nil {
		s.log.Warn("Failed to revoke service account session", "error", err)
		return
	}
	s.log.Debug("Service account session revoked")
}

func (s *Session) ClusterID() string { return s.clusterID }
func (s *Session) ClusterName() string { return s.clusterName }
func (s *Session) Version() ClusterVersion { return s.version }
func (s *Session) Timezone() string { return s.timezone }
func (s *Session) Location() *time.Location { return s.location }
func (s *Session) Capabilities() Capabilities { return s.caps }
func (s *Session) Logger() logger.Logger { return s.log }
