package mimiqlink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/qperfect-io/mimiqlink-go/domain"
	"github.com/qperfect-io/mimiqlink-go/util"
)

const (
	// QPerfectCloud the production MIMIQ server
	QPerfectCloud = "https://mimiq.qperfect.io"

	// QPerfectDev the development MIMIQ server
	QPerfectDev = "https://mimiqfast.qperfect.io"

	// DefaultTokenFile default path for saved credentials
	DefaultTokenFile = "qperfect.json"
)

// Connection to the MIMIQ remote services.
// It handles the authentication and the requests.
type Connection struct {
	session

	// guarded by session.mu
	refreshToken  string
	limits        *domain.UserLimits
	refreshCancel context.CancelFunc
	refreshDone   chan struct{}

	sf singleflight.Group
}

// New builds a connection against the given server URL,
// QPerfectCloud when empty. The connection is not yet authenticated,
// call one of the Connect methods first.
func New(url string, opts ...Option) *Connection {
	if url == "" {
		url = QPerfectCloud
	}

	c := &Connection{
		session: newSession(url, "api"),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&c.session)
		}
	}

	return c
}

// ConnectUser authenticates with email and password credentials.
func (c *Connection) ConnectUser(ctx context.Context, email, password string) error {
	if c.IsOpen() {
		c.Close()
	}

	_, _, err := c.signIn(ctx, email, password)
	return err
}

// ConnectToken authenticates with a stored refresh token.
func (c *Connection) ConnectToken(ctx context.Context, token string) error {
	if c.IsOpen() {
		c.Close()
	}

	c.mu.Lock()
	c.refreshToken = token
	c.mu.Unlock()

	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	util.LogInfo("Authentication successful.")
	c.startRefresher()
	return nil
}

// Connect opens the connection. With no arguments it starts the browser
// login, one argument is a refresh token, two are email and password.
// Connecting an already open connection is a no-op.
func (c *Connection) Connect(ctx context.Context, args ...string) error {
	if c.IsOpen() {
		return nil
	}

	switch len(args) {
	case 0:
		return c.ConnectWeb(ctx)
	case 1:
		return c.ConnectToken(ctx, args[0])
	case 2:
		return c.ConnectUser(ctx, args[0], args[1])
	}

	return ErrInvalidConnectArgs
}

// signIn posts the credentials and adopts the returned token pair.
// The upstream status code and body are returned so the web login
// page can relay the exact server reply.
func (c *Connection) signIn(ctx context.Context, email, password string) (int, []byte, error) {
	resp, err := c.send(ctx, http.MethodPost, c.apiURL("sign-in"), signInBody(email, password), sendOpts{
		contentType: util.HttpMimeJson,
		closeConn:   true,
	})
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, body, fmt.Errorf("authentication failed: %w", apiError(resp.StatusCode, body))
	}

	var tokens domain.TokenPair
	if err := json.Unmarshal(body, &tokens); err != nil {
		return resp.StatusCode, body, err
	}

	if err := c.adoptTokens(ctx, &tokens); err != nil {
		return resp.StatusCode, body, err
	}

	util.LogInfo("Authentication successful.")
	return resp.StatusCode, body, nil
}

func signInBody(email, password string) io.Reader {
	raw, _ := json.Marshal(&domain.SignInBody{
		Email:    email,
		Password: password,
	})
	return bytes.NewReader(raw)
}

// adoptTokens stores a fresh token pair, refetches the user limits
// and (re)starts the background refresher.
func (c *Connection) adoptTokens(ctx context.Context, tokens *domain.TokenPair) error {
	c.mu.Lock()
	c.accessToken = tokens.Token
	c.refreshToken = tokens.RefreshToken
	c.mu.Unlock()

	if err := c.updateUserLimits(ctx); err != nil {
		return err
	}

	c.startRefresher()
	return nil
}

// ===================================
//		Token refresh
// ===================================

// Refresh renews the access token with the refresh token.
// Concurrent calls are collapsed into a single request.
func (c *Connection) Refresh(ctx context.Context) error {
	_, err, _ := c.sf.Do("refresh", func() (interface{}, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

func (c *Connection) refresh(ctx context.Context) error {
	c.mu.Lock()
	body := &domain.RefreshBody{RefreshToken: c.refreshToken}
	c.mu.Unlock()

	var tokens domain.TokenPair
	if err := c.postJSON(ctx, c.apiURL("access-token"), body, &tokens, true); err != nil {
		return fmt.Errorf("failed to refresh the access token: %w", err)
	}

	c.mu.Lock()
	c.accessToken = tokens.Token
	c.refreshToken = tokens.RefreshToken
	c.mu.Unlock()

	return c.updateUserLimits(ctx)
}

func (c *Connection) startRefresher() {
	c.stopRefresher()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.refreshCancel = cancel
	c.refreshDone = done
	c.mu.Unlock()

	go c.refresherMain(ctx, done)
}

func (c *Connection) refresherMain(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				util.LogError("Token refresh failed, closing the session: %v", err)
				c.mu.Lock()
				c.accessToken = ""
				c.refreshToken = ""
				c.mu.Unlock()
				return
			}
		}
	}
}

func (c *Connection) stopRefresher() {
	c.mu.Lock()
	cancel := c.refreshCancel
	done := c.refreshDone
	c.refreshCancel = nil
	c.refreshDone = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}

	util.LogInfo("Shutting down token refresher")
	cancel()
	<-done
}

// Close stops the refresher and drops the tokens.
func (c *Connection) Close() {
	util.LogInfo("Closing connection to %s", c.url)
	c.stopRefresher()

	c.mu.Lock()
	c.accessToken = ""
	c.refreshToken = ""
	c.mu.Unlock()
}

// IsOpen reports whether the refresher is alive and a token is held.
func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refreshDone == nil {
		return false
	}

	select {
	case <-c.refreshDone:
		return false
	default:
	}

	return c.accessToken != ""
}

// ===================================
//		Token file
// ===================================

// tokenFile the on-disk credential format shared with the other MIMIQ clients
type tokenFile struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// SaveToken writes the refresh token to path, DefaultTokenFile when empty.
func (c *Connection) SaveToken(path string) error {
	if path == "" {
		path = DefaultTokenFile
	}

	c.mu.Lock()
	token := c.refreshToken
	c.mu.Unlock()

	if token == "" {
		return ErrNotAuthenticated
	}

	raw, err := json.Marshal(&tokenFile{Token: token, URL: c.url})
	if err != nil {
		return err
	}

	_, err = util.WriteFileAtomic(path, bytes.NewReader(raw))
	return err
}

// LoadToken connects using a refresh token saved by SaveToken.
// The stored URL must match the connection's URL.
func (c *Connection) LoadToken(ctx context.Context, path string) error {
	if path == "" {
		path = DefaultTokenFile
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read token file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return fmt.Errorf("failed to read token file: %w", err)
	}

	if tf.URL != c.url {
		return fmt.Errorf("%w: token saved for %s, connecting to %s", ErrTokenMismatch, tf.URL, c.url)
	}

	if err := c.ConnectToken(ctx, tf.Token); err != nil {
		return fmt.Errorf("unable to connect using the stored token: %w", err)
	}

	return nil
}

// ===================================
//		User limits
// ===================================

// UserLimits the last quota document fetched from the server, nil before login.
func (c *Connection) UserLimits() *domain.UserLimits {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limits
}

func (c *Connection) updateUserLimits(ctx context.Context) error {
	var limits domain.UserLimits
	if err := c.getJSON(ctx, c.apiURL("users", "limits"), &limits); err != nil {
		return fmt.Errorf("failed to retrieve user limits: %w", err)
	}

	c.mu.Lock()
	c.limits = &limits
	c.mu.Unlock()

	c.warnUserLimits(&limits)
	return nil
}

func (c *Connection) warnUserLimits(limits *domain.UserLimits) {
	if limits.ExceededExecutionTime() {
		util.LogWarn("You have exceeded your computing time limit of %v minutes", limits.MaxExecutionTime)
	}

	if limits.ExceededExecutions() {
		util.LogWarn("You have exceeded your number of executions limit of %d", limits.MaxExecutions)
	}
}

func (c *Connection) String() string {
	c.mu.Lock()
	limits := c.limits
	c.mu.Unlock()

	out := fmt.Sprintf("MimiqConnection:\n├── url: %s\n", c.url)

	if limits != nil {
		if limits.EnabledExecutionTime {
			out += fmt.Sprintf("├── Computing time: %d/%d minutes\n",
				int(math.Round(limits.UsedExecutionTime/60)),
				int(math.Round(limits.MaxExecutionTime/60)))
		}
		if limits.EnabledMaxExecutions {
			out += fmt.Sprintf("├── Executions: %d/%d\n", limits.UsedExecutions, limits.MaxExecutions)
		}
		if limits.EnabledMaxTimeout {
			maxTimeout := int(math.Round(limits.MaxTimeout))
			out += fmt.Sprintf("├── Max time limit per request: %d minutes\n", maxTimeout)
			out += fmt.Sprintf("├── Default time limit is equal to max time limit: %d minutes\n", maxTimeout)
		} else {
			out += "├── Max time limit is: 30 minutes\n"
			out += "├── Default time limit is: 30 minutes\n"
		}
	}

	status := "closed"
	if c.IsOpen() {
		status = "open"
	}

	return out + "└── status: " + status
}
