package mimiqlink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/qperfect-io/mimiqlink-go/domain"
	"github.com/qperfect-io/mimiqlink-go/util"
)

const (
	// Version of the client library
	Version = "0.6.0"

	defaultRefreshInterval  = 15 * time.Minute
	defaultDownloadAttempts = 5
	defaultDownloadWait     = 10 * time.Second

	// JSON replies never come close to this
	maxBodySize = 32 << 20
)

// session carries the HTTP plumbing shared by all connection types:
// base URL, API prefix, the bearer token and the transfer settings.
type session struct {
	url       string
	apiPrefix string
	hc        *http.Client
	ua        string

	mu          sync.Mutex
	accessToken string

	refreshEvery     time.Duration
	downloadAttempts int
	downloadWait     time.Duration
	progressOut      io.Writer
}

func newSession(url, apiPrefix string) session {
	transport := &http.Transport{
		// connect timeout only, uploads and downloads may run long
		DialContext:     (&net.Dialer{Timeout: time.Second}).DialContext,
		MaxIdleConns:    5,
		IdleConnTimeout: 30 * time.Second,
	}

	return session{
		url:       strings.TrimRight(url, "/"),
		apiPrefix: apiPrefix,
		hc:        &http.Client{Transport: transport},
		ua:        "mimiqlink-go/" + Version,

		refreshEvery:     defaultRefreshInterval,
		downloadAttempts: defaultDownloadAttempts,
		downloadWait:     defaultDownloadWait,
	}
}

// URL the base URL of the remote server.
func (s *session) URL() string {
	return s.url
}

// CheckAuth errors when the connection holds no access token.
func (s *session) CheckAuth() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken == "" {
		return ErrNotAuthenticated
	}
	return nil
}

func (s *session) setAccessToken(token string) {
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
}

func (s *session) apiURL(paths ...string) string {
	out := s.url + "/" + s.apiPrefix
	for _, path := range paths {
		out += "/" + strings.TrimLeft(path, "/")
	}
	return out
}

type sendOpts struct {
	contentType string
	closeConn   bool
}

func (s *session) send(ctx context.Context, method, url string, body io.Reader, opt sendOpts) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	if opt.contentType != "" {
		req.Header.Set(util.HttpHeaderContentType, opt.contentType)
	}
	req.Header.Set(util.HttpHeaderUserAgent, s.ua)
	req.Close = opt.closeConn

	s.mu.Lock()
	token := s.accessToken
	s.mu.Unlock()

	if token != "" {
		req.Header.Set(util.HttpHeaderAuthorization, "Bearer "+token)
	}

	return s.hc.Do(req)
}

func (s *session) getJSON(ctx context.Context, url string, out interface{}) error {
	resp, err := s.send(ctx, http.MethodGet, url, nil, sendOpts{})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeReply(resp, out)
}

func (s *session) postJSON(ctx context.Context, url string, in, out interface{}, closeConn bool) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	resp, err := s.send(ctx, http.MethodPost, url, body, sendOpts{
		contentType: util.HttpMimeJson,
		closeConn:   closeConn,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeReply(resp, out)
}

// decodeReply maps non-200 replies to an APIError, otherwise decodes the body into out.
func decodeReply(resp *http.Response, out interface{}) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}

	return json.Unmarshal(raw, out)
}

func apiError(status int, body []byte) *APIError {
	var reply domain.ErrorReply
	_ = json.Unmarshal(body, &reply)

	return &APIError{
		Status:  status,
		Message: reply.Message,
	}
}
