package mimiqlink

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/qperfect-io/mimiqlink-go/domain"
	"github.com/qperfect-io/mimiqlink-go/util"
)

const (
	// PlanqkGateway the PlanQK marketplace gateway in front of MIMIQ
	PlanqkGateway = "https://gateway.platform.planqk.de"

	EnvPlanqkConsumerKey    = "PLANQK_CONSUMER_KEY"
	EnvPlanqkConsumerSecret = "PLANQK_CONSUMER_SECRET"

	planqkTokenTimeout = 30 * time.Second
)

// PlanqkConnection reaches the MIMIQ services through the PlanQK gateway.
// Authentication uses OAuth2 client credentials; the request and file
// transfer operations are the same as on Connection.
type PlanqkConnection struct {
	session

	// guarded by session.mu
	consumerKey    string
	consumerSecret string
	token          *domain.JWTToken
	refreshCancel  context.CancelFunc
	refreshDone    chan struct{}
}

// NewPlanqk builds a connection against the given gateway URL,
// PlanqkGateway when empty.
func NewPlanqk(url string, opts ...Option) *PlanqkConnection {
	if url == "" {
		url = PlanqkGateway
	}

	p := &PlanqkConnection{
		session: newSession(url, "planqk"),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&p.session)
		}
	}

	return p
}

// Connect fetches a gateway token with the consumer credentials, taken from
// the arguments or from PLANQK_CONSUMER_KEY / PLANQK_CONSUMER_SECRET.
// Connecting an already open connection is a no-op.
func (p *PlanqkConnection) Connect(ctx context.Context, args ...string) error {
	if p.IsOpen() {
		return nil
	}

	var key, secret string
	switch len(args) {
	case 0:
	case 2:
		key, secret = args[0], args[1]
	default:
		return ErrInvalidConnectArgs
	}

	if !util.HasString(key) {
		key = os.Getenv(EnvPlanqkConsumerKey)
	}
	if !util.HasString(secret) {
		secret = os.Getenv(EnvPlanqkConsumerSecret)
	}

	if !util.HasString(key) || !util.HasString(secret) {
		return ErrMissingCredentials
	}

	p.mu.Lock()
	p.consumerKey = key
	p.consumerSecret = secret
	p.mu.Unlock()

	token, err := p.fetchToken(ctx)
	if err != nil {
		return err
	}

	p.adoptToken(token)
	p.startRefresher()

	util.LogInfo("Successfully connected to PlanQK API.")
	return nil
}

// Token the current gateway token, nil before Connect.
func (p *PlanqkConnection) Token() *domain.JWTToken {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// fetchToken runs the OAuth2 client credentials exchange.
func (p *PlanqkConnection) fetchToken(ctx context.Context) (*domain.JWTToken, error) {
	ctx, cancel := context.WithTimeout(ctx, planqkTokenTimeout)
	defer cancel()

	p.mu.Lock()
	creds := base64.StdEncoding.EncodeToString([]byte(p.consumerKey + ":" + p.consumerSecret))
	p.mu.Unlock()

	url := p.url + "/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return nil, err
	}

	req.Header.Set(util.HttpHeaderContentType, util.HttpMimeForm)
	req.Header.Set(util.HttpHeaderAuthorization, "Basic "+creds)
	req.Header.Set(util.HttpHeaderUserAgent, p.ua)

	resp, err := p.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get a gateway token: %w", apiError(resp.StatusCode, raw))
	}

	var token domain.JWTToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, err
	}

	return &token, nil
}

func (p *PlanqkConnection) adoptToken(token *domain.JWTToken) {
	p.mu.Lock()
	p.token = token
	p.accessToken = token.AccessToken
	p.mu.Unlock()
}

func (p *PlanqkConnection) startRefresher() {
	p.stopRefresher()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.refreshCancel = cancel
	p.refreshDone = done
	p.mu.Unlock()

	go p.refresherMain(ctx, done)
}

// refresherMain renews the gateway token after 80% of its lifetime.
// A failed renewal is logged and retried on the next cycle.
func (p *PlanqkConnection) refresherMain(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		p.mu.Lock()
		token := p.token
		p.mu.Unlock()

		if token == nil {
			return
		}

		wait := time.Duration(float64(token.ExpiresIn)*0.8) * time.Second

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		util.LogDebug("Refreshing PlanQK token")

		newToken, err := p.fetchToken(ctx)
		if err != nil {
			util.LogError("Failed to refresh PlanQK token: %v", err)
			continue
		}

		p.adoptToken(newToken)
		util.LogDebug("Successfully refreshed PlanQK token. New expiration: %ds", newToken.ExpiresIn)
	}
}

func (p *PlanqkConnection) stopRefresher() {
	p.mu.Lock()
	cancel := p.refreshCancel
	done := p.refreshDone
	p.refreshCancel = nil
	p.refreshDone = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}

	util.LogInfo("Shutting down token refresher")
	cancel()
	<-done
}

// Close stops the refresher and drops the token.
func (p *PlanqkConnection) Close() {
	util.LogInfo("Closing connection to PlanQK API (%s)", p.url)
	p.stopRefresher()

	p.mu.Lock()
	p.token = nil
	p.accessToken = ""
	p.mu.Unlock()
}

// IsOpen reports whether the refresher is alive and a token is held.
func (p *PlanqkConnection) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.refreshDone == nil {
		return false
	}

	select {
	case <-p.refreshDone:
		return false
	default:
	}

	return p.token != nil
}

func (p *PlanqkConnection) String() string {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()

	out := fmt.Sprintf("PlanqkConnection:\n├── url: %s\n", p.url)

	if token != nil {
		out += fmt.Sprintf("├── token_type: %s\n", token.TokenType)
		out += fmt.Sprintf("├── expires_in: %ds\n", token.ExpiresIn)
	}

	status := "closed"
	if p.IsOpen() {
		status = "open"
	}

	return out + "└── status: " + status
}
