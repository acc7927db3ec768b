package mimiqlink

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/browser"

	"github.com/qperfect-io/mimiqlink-go/domain"
	"github.com/qperfect-io/mimiqlink-go/util"
)

//go:embed public
var loginAssets embed.FS

const preferredLoginPort = 1444

// ConnectWeb serves a login page on localhost, opens the browser at it and
// waits until the page signs in or ctx is canceled. Credentials entered on
// the page are proxied to the remote sign-in endpoint.
func (c *Connection) ConnectWeb(ctx context.Context) error {
	if c.IsOpen() {
		c.Close()
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", preferredLoginPort))
	if err != nil {
		// preferred port taken, let the OS pick one
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return err
		}
	}

	loggedIn := make(chan struct{}, 1)

	srv := &http.Server{Handler: c.loginRouter(ctx, loggedIn)}
	go func() {
		_ = srv.Serve(listener)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	loginURL := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	util.LogInfo("Listening on: %s", listener.Addr())
	util.LogInfo("Please login in your browser at %s", loginURL)

	if err := browser.OpenURL(loginURL); err != nil {
		util.LogWarn("Unable to open a browser, visit %s manually", loginURL)
	}

	select {
	case <-loggedIn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loginRouter serves the embedded login page and proxies its credentials
// to the remote server, relaying status and body so the page can show
// the exact error message. Only failed attempts are logged.
func (c *Connection) loginRouter(ctx context.Context, loggedIn chan<- struct{}) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/api/login", func(gc *gin.Context) {
		var creds domain.SignInBody
		if err := gc.ShouldBindJSON(&creds); err != nil {
			gc.String(http.StatusBadRequest, "Bad Request: unable to parse JSON")
			return
		}

		status, body, err := c.signIn(ctx, creds.Email, creds.Password)

		switch {
		case err == nil:
			gc.Data(status, util.HttpMimeJson, body)
			select {
			case loggedIn <- struct{}{}:
			default:
			}
		case status >= 300:
			// sign-in rejected upstream, relay the reply as is
			util.LogWarn("Login attempt failed: %v", err)
			gc.Data(status, util.HttpMimeJson, body)
		default:
			util.LogWarn("Login attempt failed: %v", err)
			gc.String(http.StatusInternalServerError, "Internal Server Error: %s", err)
		}
	})

	assets, _ := fs.Sub(loginAssets, "public")
	router.NoRoute(gin.WrapH(http.FileServer(http.FS(assets))))

	return router
}
