package taruvi

import (
	"github.com/hashicorp/go-hclog"
)

// Client is the entry point to the SDK. A Client is an immutable value pairing
// configuration with at most one credential; authentication transitions
// (SignIn*, SignOut, AsUser) return new Clients and never mutate the receiver,
// so distinct identities can run concurrently over the same shared pipeline.
type Client struct {
	config     Config
	authHeader AuthHeader
	pipeline   *pipeline
	log        hclog.Logger
}

// NewClient builds a client from cfg merged over environment values and
// defaults. Precedence, lowest to highest: built-in defaults, .env file,
// environment variables, managed-runtime context, explicit cfg fields.
//
// When Config.APIKey resolves non-empty, the client starts authenticated with
// a bearer credential.
func NewClient(cfg Config) (*Client, error) {
	resolved := DefaultConfig()
	resolved.applyEnv()
	resolved.applyRuntime(CurrentFunctionContext())
	resolved.merge(cfg)

	if err := resolved.Validate(); err != nil {
		return nil, err
	}

	log := resolved.Logger
	if log == nil {
		if resolved.Debug {
			log = hclog.New(&hclog.LoggerOptions{Name: "taruvi", Level: hclog.Debug})
		} else {
			log = hclog.NewNullLogger()
		}
	}

	c := &Client{
		config:   resolved,
		pipeline: newPipeline(resolved, log),
		log:      log,
	}

	if resolved.APIKey != "" {
		header, err := authHeaderForToken(TokenTypeJWT, resolved.APIKey)
		if err != nil {
			return nil, err
		}
		c.authHeader = header
	}

	log.Debug("client initialized",
		"api_url", resolved.APIURL,
		"app", resolved.AppSlug,
		"site", resolved.SiteSlug,
		"mode", resolved.Mode,
		"authenticated", c.authHeader.IsAuthenticated())
	return c, nil
}

// withAuth derives a new client carrying header. Config and pipeline are
// shared; only the credential differs.
func (c *Client) withAuth(header AuthHeader) *Client {
	derived := *c
	derived.authHeader = header
	return &derived
}

// IsAuthenticated reports whether the client carries a credential.
func (c *Client) IsAuthenticated() bool { return c.authHeader.IsAuthenticated() }

// Config returns the resolved configuration the client was built with.
func (c *Client) Config() Config { return c.config }

// AsUser returns a new client impersonating the holder of jwtToken. Intended
// for service accounts acting on behalf of end users; equivalent to
// Auth().SignInWithToken(jwtToken, TokenTypeJWT).
func (c *Client) AsUser(jwtToken string) (*Client, error) {
	return c.Auth().SignInWithToken(jwtToken, TokenTypeJWT)
}

// Auth returns the authentication state machine for this client.
func (c *Client) Auth() *AuthManager { return &AuthManager{client: c} }

// Database returns the datatable module.
func (c *Client) Database() *DatabaseModule { return &DatabaseModule{client: c} }

// Functions returns the function execution module.
func (c *Client) Functions() *FunctionsModule { return &FunctionsModule{client: c} }

// Storage returns the storage bucket module.
func (c *Client) Storage() *StorageModule { return &StorageModule{client: c} }

// Secrets returns the secrets module.
func (c *Client) Secrets() *SecretsModule { return &SecretsModule{client: c} }

// Policy returns the policy check module.
func (c *Client) Policy() *PolicyModule { return &PolicyModule{client: c} }

// App returns the application metadata module.
func (c *Client) App() *AppModule { return &AppModule{client: c} }

// Settings returns the tenant settings module.
func (c *Client) Settings() *SettingsModule { return &SettingsModule{client: c} }

// Users returns the user management module.
func (c *Client) Users() *UsersModule { return &UsersModule{client: c} }
