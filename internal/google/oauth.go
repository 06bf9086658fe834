package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/teemow/slotkeeper/internal/instrumentation"
	"github.com/teemow/slotkeeper/internal/logging"
)

// DefaultRevokeURL is Google's token revocation endpoint.
const DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// NewOAuthConfig returns the OAuth2 configuration used to connect the
// business calendar.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       DefaultOAuthScopes,
	}
}

// AuthCodeURL returns the consent URL. Offline access with forced consent
// makes Google issue a refresh token even on reconnect.
func (m *CredentialManager) AuthCodeURL(state string) string {
	return m.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens.
func (m *CredentialManager) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	token, err := m.config.Exchange(m.clientContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// AccountEmail returns the email of the identity token belongs to.
func (m *CredentialManager) AccountEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceUserinfo, instrumentation.OperationUserinfo)
	defer span.End()

	client := oauth2.NewClient(m.clientContext(ctx), oauth2.StaticTokenSource(token))
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if m.userinfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(m.userinfoEndpoint))
	}
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return "", fmt.Errorf("failed to get user info: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("user info has no email; is the userinfo.email scope granted?")
	}
	instrumentation.SetSpanSuccess(span)
	return strings.ToLower(info.Email), nil
}

// Revoke revokes token at the provider. Failures are logged, not returned:
// the caller is discarding the token either way. The call is bounded by the
// manager's timeout.
func (m *CredentialManager) Revoke(ctx context.Context, token string) {
	if token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		m.logger.Warn("failed to build revoke request", logging.Err(err))
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClientOrDefault().Do(req)
	if err != nil {
		m.logger.Warn("token revocation failed", logging.Err(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		m.logger.Warn("token revocation rejected", "status_code", resp.StatusCode)
		return
	}
	m.logger.Info("token revoked", "token", logging.SanitizeToken(token))
}

// clientContext attaches the configured HTTP client for the oauth2 package.
func (m *CredentialManager) clientContext(ctx context.Context) context.Context {
	if m.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}
	return ctx
}

func (m *CredentialManager) httpClientOrDefault() *http.Client {
	if m.httpClient != nil {
		return m.httpClient
	}
	return http.DefaultClient
}
