package server

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/GoCodeAlone/wpadmin/admin"
	"github.com/GoCodeAlone/wpadmin/config"
)

const (
	sessionAudience = "wpadmin-session"
	sessionTTL      = 24 * time.Hour
	sessionCookie   = "wpadmin_session"
	loginPath       = "/wp-admin/login"
	landingPath     = "/wp-admin/plugin-install.php"
)

// dummyHash is compared against when the user is unknown so that lookups
// take as long as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("wpadmin"), bcrypt.DefaultCost)

// generateSecret creates a random 32-byte secret.
func generateSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// jwtSecret returns the configured JWT secret, generating one if empty.
func (s *Server) jwtSecret() string {
	if s.cfg.Auth.JWTSecret != "" {
		return s.cfg.Auth.JWTSecret
	}
	s.secretOnce.Do(func() {
		s.generatedSecret = generateSecret()
	})
	return s.generatedSecret
}

// signSession issues a session token for user.
func (s *Server) signSession(user string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user,
		Audience:  jwt.ClaimStrings{sessionAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret()))
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

// verifySession validates a session token and returns its user.
func (s *Server) verifySession(token string) (config.UserConfig, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return []byte(s.jwtSecret()), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(sessionAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return config.UserConfig{}, err
	}
	user, ok := s.cfg.User(claims.Subject)
	if !ok {
		return config.UserConfig{}, fmt.Errorf("unknown user %q", claims.Subject)
	}
	return user, nil
}

// authenticate checks a username and password against the configured users.
func (s *Server) authenticate(name, password string) (config.UserConfig, bool) {
	user, ok := s.cfg.User(name)
	hash := dummyHash
	if ok {
		hash = []byte(user.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !ok {
		return config.UserConfig{}, false
	}
	return user, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken returns the bearer token or session cookie, if any.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// loginRequest is the body accepted by POST /api/auth/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the body returned by a successful login.
type loginResponse struct {
	Token string `json:"token"`
}

// handleLogin validates credentials and issues a JWT.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, ok := s.authenticate(req.Username, req.Password)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.signSession(user.Name)
	if err != nil {
		s.logger.Error("sign jwt", slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	s.setSessionCookie(w, r, token)
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

// handleMe returns the currently authenticated user.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	caps := user.Capabilities
	if caps == nil {
		caps = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"username":     user.Name,
		"capabilities": caps,
	})
}

// handleLoginForm shows the sign-in page.
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.renderer.Login(w, http.StatusOK, admin.LoginPage{
		Action:     loginPath,
		RedirectTo: safeRedirect(r.URL.Query().Get("redirect_to")),
	})
}

// handleLoginSubmit signs in from the form and sets the session cookie.
func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	name := r.PostFormValue("log")
	redirect := safeRedirect(r.PostFormValue("redirect_to"))

	user, ok := s.authenticate(name, r.PostFormValue("pwd"))
	if !ok {
		s.logger.Warn("failed login", slog.String("user", name))
		s.renderer.Login(w, http.StatusUnauthorized, admin.LoginPage{
			Action:     loginPath,
			User:       name,
			RedirectTo: redirect,
			Error:      "The username or password you entered is incorrect.",
		})
		return
	}

	token, err := s.signSession(user.Name)
	if err != nil {
		s.logger.Error("sign jwt", slog.Any("err", err))
		http.Error(w, "could not issue token", http.StatusInternalServerError)
		return
	}
	s.setSessionCookie(w, r, token)
	http.Redirect(w, r, redirect, http.StatusFound)
}

// handleLogout clears the session cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	http.Redirect(w, r, loginPath, http.StatusFound)
}

// safeRedirect keeps redirects on this host.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return landingPath
	}
	return target
}

// authMiddleware enforces JWT authentication on wrapped API handlers.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
			return
		}
		user, err := s.verifySession(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid token: "+err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithUser(r.Context(), user)))
	})
}

// pageAuth sends signed-out visitors of admin pages to the login form.
func (s *Server) pageAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.verifySession(sessionToken(r))
		if err != nil {
			http.Redirect(w, r, loginPath+"?redirect_to="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithUser(r.Context(), user)))
	})
}
