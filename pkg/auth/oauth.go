package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	// ClientSecretsFile is the downloaded Google API credentials file, kept in
	// the config directory.
	ClientSecretsFile = "credentials.json"

	// TokenFile caches the access and refresh token next to the credentials.
	TokenFile = "token.json"

	// LocalhostAuthPort is where the local redirect listener runs.
	LocalhostAuthPort = "6789"

	oobRedirect = "urn:ietf:wg:oauth:2.0:oob"
)

// Scopes needed to find the agenda calendar and manage its events.
var Scopes = []string{
	calendar.CalendarEventsScope,
	calendar.CalendarReadonlyScope,
}

// Authenticator runs the installed-app OAuth flow with its files under Dir.
type Authenticator struct {
	Dir    string
	Logger *zap.Logger
	// Prompt receives the authorization URL. Defaults to stdout.
	Prompt io.Writer
}

func (a *Authenticator) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// Config creates an oauth2.Config from the client secrets file.
func (a *Authenticator) Config(scopes []string) (*oauth2.Config, error) {
	path := filepath.Join(a.Dir, ClientSecretsFile)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", path, err)
	}

	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = localRedirect(config.RedirectURL, a.logger())
	return config, nil
}

// localRedirect pins localhost and out-of-band redirects to the listener
// port. Other redirects are kept as configured.
func localRedirect(redirect string, log *zap.Logger) string {
	if redirect == oobRedirect {
		fixed := fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
		log.Info("overriding out-of-band redirect", zap.String("redirect_url", fixed))
		return fixed
	}
	u, err := url.Parse(redirect)
	if err != nil {
		log.Warn("could not parse redirect url, using it as is", zap.String("redirect_url", redirect), zap.Error(err))
		return redirect
	}
	if u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		log.Warn("redirect url is not a localhost callback", zap.String("redirect_url", redirect))
		return redirect
	}
	if p := u.Port(); p != "" && p != LocalhostAuthPort {
		log.Warn("forcing localhost redirect port", zap.String("configured", p), zap.String("port", LocalhostAuthPort))
	}
	u.Host = net.JoinHostPort(u.Hostname(), LocalhostAuthPort)
	return u.String()
}

// Client returns an authenticated *http.Client. It loads the cached token,
// or runs the browser flow when there is none. A token refreshed by the
// client is written back to the cache.
func (a *Authenticator) Client(ctx context.Context, scopes []string) (*http.Client, error) {
	config, err := a.Config(scopes)
	if err != nil {
		return nil, err
	}

	tokenPath := filepath.Join(a.Dir, TokenFile)
	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		a.logger().Info("no cached token, starting web authorization", zap.String("path", tokenPath))
		tok, err = a.tokenFromWeb(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(tokenPath, tok); err != nil {
			return nil, err
		}
	}

	ts := &savingSource{
		base: config.TokenSource(ctx, tok),
		last: tok,
		path: tokenPath,
		log:  a.logger(),
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts)), nil
}

// savingSource writes a token back to disk whenever the refresh yields a new
// one.
type savingSource struct {
	base oauth2.TokenSource
	last *oauth2.Token
	path string
	log  *zap.Logger
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		s.log.Debug("token refreshed, saving", zap.String("path", s.path))
		if err := saveToken(s.path, tok); err != nil {
			s.log.Warn("could not save refreshed token", zap.Error(err))
		}
		s.last = tok
	}
	return tok, nil
}

// tokenFromWeb runs the authorization code flow with a local listener that
// captures the redirect.
func (a *Authenticator) tokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", net.JoinHostPort("localhost", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				select {
				case errCh <- errors.New("authorization code not found in redirect URL"):
				default:
				}
				return
			}
			fmt.Fprint(w, "Authentication successful! You can close this window.")
			select {
			case codeCh <- code:
			default:
			}
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	defer server.Close()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- fmt.Errorf("HTTP server error: %w", err):
			default:
			}
		}
	}()

	// Offline access so a refresh token is returned.
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	prompt := a.Prompt
	if prompt == nil {
		prompt = os.Stdout
	}
	fmt.Fprintf(prompt, "Open the following URL in your browser to authorize crmsync:\n%s\n", authURL)
	a.logger().Info("waiting for authorization code", zap.String("redirect_url", config.RedirectURL))

	select {
	case code := <-codeCh:
		exCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := config.Exchange(exCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Minute):
		return nil, errors.New("authorization timed out, please try again")
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to encode OAuth token: %w", err)
	}
	return nil
}

// CalendarService creates an authenticated Google Calendar service.
func (a *Authenticator) CalendarService(ctx context.Context) (*calendar.Service, error) {
	client, err := a.Client(ctx, Scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated client for Calendar API: %w", err)
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Google Calendar service: %w", err)
	}
	return srv, nil
}
