package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"vocaflow/internal/security"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateTTL     = 10 * time.Minute
)

// GoogleOAuth is the teacher sign-in provider configuration
type GoogleOAuth struct {
	Config      *oauth2.Config
	UserInfoURL string
	signer      *security.StateSigner
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// NewGoogleOAuth returns nil unless both client credentials are set
func NewGoogleOAuth(clientID, clientSecret, appBaseURL string, signer *security.StateSigner) *GoogleOAuth {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &GoogleOAuth{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  strings.TrimRight(appBaseURL, "/") + "/api/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: googleUserInfoURL,
		signer:      signer,
	}
}

// StartGoogle redirects the browser to Google's consent screen
func (h *AuthHandler) StartGoogle(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		respondJSON(w, http.StatusNotFound, errorBody{Error: "Google sign-in is not configured"})
		return
	}

	state := h.google.signer.NewState()
	http.SetCookie(w, security.CreateStateCookie(r, state, oauthStateTTL))

	authURL := h.google.Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback completes Google sign-in and hands the token to the client
// in the URL fragment
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		respondJSON(w, http.StatusNotFound, errorBody{Error: "Google sign-in is not configured"})
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if code == "" {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "Missing authorization code"})
		return
	}

	stateCookie, err := r.Cookie(security.OAuthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state || !h.google.signer.Verify(state) {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid OAuth state"})
		return
	}
	http.SetCookie(w, security.CreateDeleteCookie(r))

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	token, err := h.google.Config.Exchange(ctx, code)
	if err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, "Failed to exchange OAuth code", "", err)
		return
	}

	userInfo, err := h.google.fetchUser(ctx, token)
	if err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, err.Error(), "Google user lookup failed", err)
		return
	}

	result, err := h.authService.OAuthTeacherLogin(ctx, userInfo.Email, userInfo.Name)
	if err != nil {
		respondWithServiceError(w, h.log, "Failed Google sign-in", err)
		return
	}

	h.log.WithField("teacher_id", result.Teacher.ID).Info("Teacher signed in with Google")
	fragment := url.Values{"token": {result.Token}, "role": {result.Role}}.Encode()
	http.Redirect(w, r, h.appBaseURL+"/auth/complete#"+fragment, http.StatusSeeOther)
}

func (g *GoogleOAuth) fetchUser(ctx context.Context, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(g.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch Google user info")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch Google user info")
	}

	var payload struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse Google user info")
	}
	if payload.Email == "" || !payload.VerifiedEmail {
		return oauthUserInfo{}, errors.New("Google account email is not verified")
	}

	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}
