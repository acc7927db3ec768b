package mimiqlink

import (
	"io"
	"net/http"
	"time"
)

// Option configures a connection on construction.
type Option func(*session)

func WithHTTPClient(hc *http.Client) Option {
	return func(s *session) {
		if hc != nil {
			s.hc = hc
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(s *session) {
		if ua != "" {
			s.ua = ua
		}
	}
}

// WithRefreshInterval overrides how often the access token is renewed.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *session) {
		if d > 0 {
			s.refreshEvery = d
		}
	}
}

// WithDownloadRetry sets how often a download is retried while the server
// is still packaging the file, and the base wait between attempts.
func WithDownloadRetry(attempts int, wait time.Duration) Option {
	return func(s *session) {
		if attempts > 0 {
			s.downloadAttempts = attempts
		}
		if wait >= 0 {
			s.downloadWait = wait
		}
	}
}

// WithProgress reports download progress to out, usually os.Stderr.
func WithProgress(out io.Writer) Option {
	return func(s *session) {
		s.progressOut = out
	}
}
