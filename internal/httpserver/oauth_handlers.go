package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"kairos_go/internal/config"
	"kairos_go/internal/service"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateTTL     = 10 * time.Minute
)

// GoogleOAuth holds the OAuth client config and the pending CSRF states.
type GoogleOAuth struct {
	oauth       *oauth2.Config
	frontendURL string

	mu     sync.Mutex
	states map[string]time.Time
}

func NewGoogleOAuth(cfg *config.Config) *GoogleOAuth {
	return &GoogleOAuth{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		frontendURL: cfg.FrontendURL,
		states:      make(map[string]time.Time),
	}
}

func (g *GoogleOAuth) newState() string {
	state := uuid.NewString()
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	for s, exp := range g.states {
		if now.After(exp) {
			delete(g.states, s)
		}
	}
	g.states[state] = now.Add(oauthStateTTL)
	return state
}

func (g *GoogleOAuth) consumeState(state string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	exp, ok := g.states[state]
	if !ok {
		return false
	}
	delete(g.states, state)
	return time.Now().Before(exp)
}

// @Summary      Google login
// @Description  Redirect to Google's consent screen
// @Tags         auth
// @Success      307
// @Router       /auth/google/login [get]
func handleGoogleLogin(g *GoogleOAuth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL := g.oauth.AuthCodeURL(g.newState(), oauth2.AccessTypeOnline)
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	}
}

// @Summary      Google callback
// @Description  Exchange the authorization code, sign the user in and redirect to the frontend
// @Tags         auth
// @Success      302
// @Failure      400  {object}  map[string]string
// @Router       /auth/google/auth [get]
func handleGoogleCallback(g *GoogleOAuth, authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.consumeState(r.URL.Query().Get("state")) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid oauth state"})
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing authorization code"})
			return
		}

		ctx := r.Context()
		token, err := g.oauth.Exchange(ctx, code)
		if err != nil {
			log.Printf("oauth: code exchange: %v", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code exchange failed"})
			return
		}

		info, err := fetchGoogleUserInfo(ctx, g.oauth, token)
		if err != nil {
			log.Printf("oauth: userinfo: %v", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to fetch user info"})
			return
		}

		resp, err := authSvc.OAuthLogin(ctx, *info)
		if err != nil {
			log.Printf("oauth: login: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to sign in"})
			return
		}

		redirect := fmt.Sprintf("%s/auth/callback?token=%s&user_id=%s",
			g.frontendURL, url.QueryEscape(resp.AccessToken), url.QueryEscape(resp.UserID))
		http.Redirect(w, r, redirect, http.StatusFound)
	}
}

func fetchGoogleUserInfo(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) (*service.GoogleUserInfo, error) {
	client := cfg.Client(ctx, token)
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("get userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("userinfo missing subject")
	}
	return &service.GoogleUserInfo{
		Sub:     info.ID,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
