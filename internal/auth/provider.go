package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/weatherdesk/internal/model"
)

// ErrCodeRejected は認証サービスが認可コードを拒否したことを表す（使用済み・期限切れ・verifier不一致）。
var ErrCodeRejected = errors.New("authorization code rejected")

// ProviderConfig は認証サービスクライアントの設定。
type ProviderConfig struct {
	AuthURL       string // 例: https://<project>.supabase.co/auth/v1
	AnonKey       string
	OAuthProvider string // 例: github
	RedirectURL   string // 例: https://app.example.com/auth/callback
}

// TokenResult はコード交換で得られるセッション情報。
type TokenResult struct {
	AccessToken string
	ExpiresIn   int
	Identity    model.Identity
}

// IdentityProvider はOAuthフローで認証サービスに対して行う操作のインターフェース。
type IdentityProvider interface {
	// AuthorizeURL は外部IdPへのログインを開始するURLを返す。
	AuthorizeURL(codeChallenge string) string
	// ExchangeCode は認可コードとcode verifierをセッションに交換する。
	ExchangeCode(ctx context.Context, code, verifier string) (*TokenResult, error)
	// Logout はアクセストークンに紐づくセッションを認証サービス側で無効化する。
	Logout(ctx context.Context, accessToken string) error
}

// ProviderClient はGoTrue互換の認証サービスに対するIdentityProvider実装。
type ProviderClient struct {
	config     ProviderConfig
	httpClient *http.Client
}

// NewProviderClient はProviderClientを生成する。
func NewProviderClient(httpClient *http.Client, config ProviderConfig) *ProviderClient {
	config.AuthURL = strings.TrimRight(config.AuthURL, "/")
	return &ProviderClient{config: config, httpClient: httpClient}
}

// AuthorizeURL は認証サービスの/authorizeエンドポイントのURLを生成する。
func (p *ProviderClient) AuthorizeURL(codeChallenge string) string {
	params := url.Values{
		"provider":              {p.config.OAuthProvider},
		"redirect_to":           {p.config.RedirectURL},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"s256"},
	}
	return p.config.AuthURL + "/authorize?" + params.Encode()
}

// tokenResponse は/token?grant_type=pkceのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// ExchangeCode は認可コードをアクセストークンに交換する。
// 認証サービスが4xxを返した場合はErrCodeRejectedをラップして返す。
func (p *ProviderClient) ExchangeCode(ctx context.Context, code, verifier string) (*TokenResult, error) {
	payload, err := json.Marshal(map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.AuthURL+"/token?grant_type=pkce", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.config.AnonKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, fmt.Errorf("%w: status %d", ErrCodeRejected, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}
	if tokenResp.User.ID == "" {
		return nil, fmt.Errorf("empty user id in response")
	}

	return &TokenResult{
		AccessToken: tokenResp.AccessToken,
		ExpiresIn:   tokenResp.ExpiresIn,
		Identity: model.Identity{
			ID:    tokenResp.User.ID,
			Email: tokenResp.User.Email,
		},
	}, nil
}

// Logout は認証サービスの/logoutを呼び出す。
// 既に無効なトークン（401/404）は成功として扱う。
func (p *ProviderClient) Logout(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.AuthURL+"/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	req.Header.Set("apikey", p.config.AnonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("logout failed with status %d", resp.StatusCode)
	}
}
