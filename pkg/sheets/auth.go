package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

var ErrNoCredentials = errors.New("no service credential configured")

// CredentialError marks a failure to obtain or renew the service token. It is
// never retried by the read path.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return "sheets credential: " + e.Err.Error()
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// renewingTokenSource tags token endpoint failures as CredentialError so that
// they survive the http.Client and googleapi wrapping.
type renewingTokenSource struct {
	src oauth2.TokenSource
}

func (r renewingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := r.src.Token()
	if err != nil {
		return nil, &CredentialError{Err: err}
	}
	log.Debug("obtained new Sheets access token")
	return tok, nil
}

// LoadTokenSource loads a service account credential, preferring the raw JSON
// secret over the file path. The returned source caches the token and renews
// it once it expires.
func LoadTokenSource(ctx context.Context, secretJSON, path string) (oauth2.TokenSource, error) {
	data := []byte(secretJSON)
	if len(data) == 0 {
		if path == "" {
			return nil, ErrNoCredentials
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("service account key not found at path: %s: %w", path, err)
		}
		data = b
	}
	return tokenSourceFromJSON(ctx, data)
}

func tokenSourceFromJSON(ctx context.Context, data []byte) (oauth2.TokenSource, error) {
	cfg, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, &CredentialError{Err: err}
	}
	return oauth2.ReuseTokenSource(nil, renewingTokenSource{src: cfg.TokenSource(ctx)}), nil
}
