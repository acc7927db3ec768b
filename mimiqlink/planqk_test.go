package mimiqlink

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qperfect-io/mimiqlink-go/util"
)

func planqkServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get(util.HttpHeaderAuthorization)
		if !strings.HasPrefix(auth, "Basic ") {
			writeJSON(w, http.StatusUnauthorized, `{"message": "missing credentials"}`)
			return
		}

		raw, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
		if string(raw) != "key-1:secret-1" {
			writeJSON(w, http.StatusUnauthorized, `{"message": "invalid credentials"}`)
			return
		}

		writeJSON(w, http.StatusOK, `{
			"access_token": "gw-token",
			"scope": "default",
			"token_type": "Bearer",
			"expires_in": 3600
		}`)
	})

	mux.HandleFunc("/planqk/request/req-1", func(w http.ResponseWriter, r *http.Request) {
		assert.New(t).Equal("Bearer gw-token", r.Header.Get(util.HttpHeaderAuthorization))
		writeJSON(w, http.StatusOK, `{"_id": "req-1", "status": "DONE"}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestShouldConnectToPlanqkGateway(t *testing.T) {
	assert := assert.New(t)

	srv := planqkServer(t)

	conn := NewPlanqk(srv.URL)
	defer conn.Close()

	assert.NoError(conn.Connect(context.Background(), "key-1", "secret-1"))
	assert.True(conn.IsOpen())

	token := conn.Token()
	assert.NotNil(token)
	assert.Equal("gw-token", token.AccessToken)
	assert.Equal(3600, token.ExpiresIn)
}

func TestShouldReadPlanqkCredentialsFromEnv(t *testing.T) {
	assert := assert.New(t)

	srv := planqkServer(t)

	t.Setenv(EnvPlanqkConsumerKey, "key-1")
	t.Setenv(EnvPlanqkConsumerSecret, "secret-1")

	conn := NewPlanqk(srv.URL)
	defer conn.Close()

	assert.NoError(conn.Connect(context.Background()))
	assert.True(conn.IsOpen())
}

func TestShouldRequirePlanqkCredentials(t *testing.T) {
	assert := assert.New(t)

	t.Setenv(EnvPlanqkConsumerKey, "")
	t.Setenv(EnvPlanqkConsumerSecret, "")

	conn := NewPlanqk(PlanqkGateway)
	err := conn.Connect(context.Background())
	assert.ErrorIs(err, ErrMissingCredentials)
	assert.False(conn.IsOpen())
}

func TestShouldRejectPlanqkBadCredentials(t *testing.T) {
	assert := assert.New(t)

	srv := planqkServer(t)

	conn := NewPlanqk(srv.URL)
	err := conn.Connect(context.Background(), "key-1", "wrong")
	assert.Error(err)

	apiErr, ok := IsAPIError(err)
	assert.True(ok)
	assert.Equal(http.StatusUnauthorized, apiErr.Status)
}

func TestShouldShareRequestSurfaceThroughGateway(t *testing.T) {
	assert := assert.New(t)

	srv := planqkServer(t)

	conn := NewPlanqk(srv.URL)
	defer conn.Close()

	assert.NoError(conn.Connect(context.Background(), "key-1", "secret-1"))

	info, err := conn.RequestInfo(context.Background(), "req-1")
	assert.NoError(err)
	assert.Equal("req-1", info.ID)
}

func TestShouldRenderPlanqkTree(t *testing.T) {
	assert := assert.New(t)

	conn := NewPlanqk("")
	out := conn.String()
	assert.Contains(out, "PlanqkConnection:")
	assert.Contains(out, "├── url: "+PlanqkGateway)
	assert.Contains(out, "└── status: closed")
}
