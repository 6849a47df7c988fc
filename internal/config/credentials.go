package config

import (
	"encoding/json"
	"net/url"
	"os"
	"reflect"
	"strings"

	"github.com/imdario/mergo"
	"github.com/mitchellh/mapstructure"

	"rbkoracle/internal/errs"
)

// Environment variables read as the last credential source.
const (
	EnvNodeIP   = "rubrik_cdm_node_ip"
	EnvUsername = "rubrik_cdm_username"
	EnvPassword = "rubrik_cdm_password"
	EnvToken    = "rubrik_cdm_token"
)

// Credentials describe how to reach and authenticate to the appliance.
type Credentials struct {
	NodeIP   string `mapstructure:"rubrik_cdm_node_ip"`
	Username string `mapstructure:"rubrik_cdm_username"`
	Password string `mapstructure:"rubrik_cdm_password"`
	Token    string `mapstructure:"rubrik_cdm_token"`

	// Service account keyfile fields
	ClientID       string `mapstructure:"client_id"`
	ClientSecret   string `mapstructure:"client_secret"`
	AccessTokenURI string `mapstructure:"access_token_uri"`
	VaultURI       string `mapstructure:"vault_uri"`
	Name           string `mapstructure:"name"`
}

// AuthMode is the authentication scheme the credentials select.
type AuthMode int

const (
	AuthNone AuthMode = iota
	AuthToken
	AuthServiceAccount
	AuthBasic
)

func (m AuthMode) String() string {
	switch m {
	case AuthToken:
		return "token"
	case AuthServiceAccount:
		return "service account"
	case AuthBasic:
		return "username/password"
	default:
		return "none"
	}
}

// Mode picks token, then service account, then username/password.
func (c *Credentials) Mode() AuthMode {
	switch {
	case c.Token != "":
		return AuthToken
	case c.ClientID != "" && c.ClientSecret != "":
		return AuthServiceAccount
	case c.Username != "" && c.Password != "":
		return AuthBasic
	default:
		return AuthNone
	}
}

// Validate checks that an endpoint and one complete credential set exist.
func (c *Credentials) Validate() error {
	if c.NodeIP == "" {
		return errs.Config("no appliance endpoint configured: set %s in the keyfile, credential file or environment, or provide vault_uri in the keyfile", EnvNodeIP)
	}
	if c.Mode() == AuthNone {
		return errs.Config("no appliance credentials configured: provide %s, %s/%s, or a service account keyfile", EnvToken, EnvUsername, EnvPassword)
	}
	return nil
}

// LoadCredentials resolves credentials from, in order of precedence, the
// keyfile, the credential file and the environment. The first source that
// populates a field wins. Blank or whitespace values count as unset.
// A missing credential file is not an error; a missing keyfile is.
func LoadCredentials(keyfile, credentialFile string) (*Credentials, error) {
	var sources []Credentials

	if keyfile != "" {
		c, err := readCredentialFile(keyfile)
		if err != nil {
			return nil, err
		}
		sources = append(sources, c)
	}

	if credentialFile != "" {
		if _, err := os.Stat(credentialFile); err == nil {
			c, err := readCredentialFile(credentialFile)
			if err != nil {
				return nil, err
			}
			sources = append(sources, c)
		}
	}

	env, err := decodeCredentials(map[string]interface{}{
		EnvNodeIP:   os.Getenv(EnvNodeIP),
		EnvUsername: os.Getenv(EnvUsername),
		EnvPassword: os.Getenv(EnvPassword),
		EnvToken:    os.Getenv(EnvToken),
	})
	if err != nil {
		return nil, err
	}
	sources = append(sources, env)

	var creds Credentials
	for _, src := range sources {
		if err := mergo.Merge(&creds, src); err != nil {
			return nil, errs.Config("merging credential sources: %v", err)
		}
	}

	if creds.NodeIP == "" {
		creds.NodeIP = endpointFromURI(creds.VaultURI)
	}
	if creds.NodeIP == "" {
		creds.NodeIP = endpointFromURI(creds.AccessTokenURI)
	}

	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &creds, nil
}

func readCredentialFile(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, errs.Config("reading credential file %s: %v", path, err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Credentials{}, errs.Config("parsing credential file %s: %v", path, err)
	}
	return decodeCredentials(raw)
}

func decodeCredentials(raw map[string]interface{}) (Credentials, error) {
	var c Credentials
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       trimStringHook,
		WeaklyTypedInput: true,
		Result:           &c,
	})
	if err != nil {
		return c, errs.Config("building credential decoder: %v", err)
	}
	if err := dec.Decode(raw); err != nil {
		return c, errs.Config("decoding credentials: %v", err)
	}
	return c, nil
}

func trimStringHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if s, ok := data.(string); ok {
		return strings.TrimSpace(s), nil
	}
	return data, nil
}

// endpointFromURI strips scheme and path: "https://vault.example.com/" -> "vault.example.com".
func endpointFromURI(uri string) string {
	if uri == "" {
		return ""
	}
	if u, err := url.Parse(uri); err == nil && u.Host != "" {
		return u.Host
	}
	uri = strings.TrimPrefix(strings.TrimPrefix(uri, "https://"), "http://")
	return strings.TrimRight(strings.SplitN(uri, "/", 2)[0], "/")
}
