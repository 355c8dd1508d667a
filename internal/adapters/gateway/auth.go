package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// TokenSource builds the credential source for the Sheets gateway.
//
// credentialsFile holds either a service account key or OAuth client secrets
// of an installed app. For client secrets the user token is read from
// tokenFile (written by Authorize); it is refreshed on expiry and the refreshed
// token is written back to tokenFile.
func TokenSource(ctx context.Context, credentialsFile, tokenFile string) (oauth2.TokenSource, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read credentials: %w", ErrAuth, err)
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, fmt.Errorf("%w: parse credentials: %w", ErrAuth, err)
	}
	if probe.Type == "service_account" {
		creds, err := google.CredentialsFromJSON(ctx, b, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAuth, err)
		}
		return creds.TokenSource, nil
	}

	cfg, err := google.ConfigFromJSON(b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	tok, err := readToken(tokenFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no token at %s, run the auth command first", ErrAuth, tokenFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	return &cachingTokenSource{
		base: cfg.TokenSource(ctx, tok),
		path: tokenFile,
		last: tok.AccessToken,
	}, nil
}

// Authorize runs the installed-app consent flow: it prints the consent URL to
// out, reads the authorization code from in and stores the token in tokenFile.
func Authorize(ctx context.Context, credentialsFile, tokenFile string, in io.Reader, out io.Writer) error {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return fmt.Errorf("%w: read credentials: %w", ErrAuth, err)
	}
	cfg, err := google.ConfigFromJSON(b, sheets.SpreadsheetsScope)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuth, err)
	}

	url := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	if _, err := fmt.Fprintf(out, "Go to the following link in your browser, then type the authorization code:\n%s\n", url); err != nil {
		return err
	}

	var code string
	if _, err := fmt.Fscan(in, &code); err != nil {
		return fmt.Errorf("%w: read authorization code: %w", ErrAuth, err)
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("%w: exchange code: %w", ErrAuth, err)
	}
	return writeToken(tokenFile, tok)
}

// cachingTokenSource persists refreshed tokens so the next run starts with a
// valid one.
type cachingTokenSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	path string
	last string
}

func (c *cachingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := c.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tok.AccessToken != c.last {
		if err := writeToken(c.path, tok); err != nil {
			return nil, err
		}
		c.last = tok.AccessToken
	}
	return tok, nil
}

func readToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(b, tok); err != nil {
		return nil, fmt.Errorf("parse token %s: %w", path, err)
	}
	return tok, nil
}

func writeToken(path string, tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write token %s: %w", path, err)
	}
	return nil
}
