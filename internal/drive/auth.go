package drive

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"

	"driveingest/internal/config"
	"driveingest/internal/fileutil"
	"driveingest/internal/services"
)

// Scope grants read and delete access; delete is needed for the
// delete_*_from_source switches.
const Scope = drive.DriveScope

// LoadOAuthConfig reads the OAuth client secret downloaded from the Google
// Cloud console.
func LoadOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "drive", "read client secret",
			fmt.Sprintf("cannot read %s; download an OAuth desktop client secret and set drive.credentials_file", credentialsFile), err)
	}
	cfg, err := google.ConfigFromJSON(raw, Scope)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "drive", "parse client secret", "client secret is not a valid OAuth client JSON", err)
	}
	return cfg, nil
}

// LoadToken reads a token previously saved by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrConfiguration, "drive", "read token",
				"no Drive token found; run `driveingest auth` first", err)
		}
		return nil, fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "drive", "decode token", "token file is corrupt; rerun `driveingest auth`", err)
	}
	return &tok, nil
}

// SaveToken writes tok as JSON readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("ensure token directory: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o600)
}

// HTTPClient returns an OAuth-authorized client built from the configured
// client secret and stored token. Token refreshes outlive ctx; each request
// carries its own context.
func HTTPClient(ctx context.Context, cfg config.Drive) (*http.Client, error) {
	oauthCfg, err := LoadOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	return oauthCfg.Client(context.WithoutCancel(ctx), tok), nil
}

// Authorize runs the interactive consent flow: it prints the consent URL to
// out, reads the authorization code from in, exchanges it, and saves the
// token to cfg.TokenFile.
func Authorize(ctx context.Context, cfg config.Drive, in io.Reader, out io.Writer) error {
	oauthCfg, err := LoadOAuthConfig(cfg.CredentialsFile)
	if err != nil {
		return err
	}
	consentURL := oauthCfg.AuthCodeURL("driveingest", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(out, "Open this URL in a browser and approve access:\n\n  %s\n\n", consentURL)
	fmt.Fprint(out, "Paste the authorization code (or the full redirect URL): ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read authorization code: %w", err)
	}
	code := extractCode(line)
	if code == "" {
		return services.Wrap(services.ErrValidation, "drive", "authorize", "no authorization code entered", nil)
	}

	tok, err := oauthCfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := SaveToken(cfg.TokenFile, tok); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token saved to %s\n", cfg.TokenFile)
	return nil
}

// extractCode accepts either a bare code or the redirect URL containing it.
func extractCode(input string) string {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "code=") {
		return input
	}
	if parsed, err := url.Parse(input); err == nil {
		if code := parsed.Query().Get("code"); code != "" {
			return code
		}
	}
	return ""
}
