package api

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// Session cookie name
	SessionCookieName = "room_admin_session"

	// Session duration (24 hours)
	SessionDuration = 24 * time.Hour

	// Cookie settings
	CookieSecure   = false // Set to true in production with HTTPS
	CookieHTTPOnly = true
	CookieSameSite = http.SameSiteLaxMode
)

// AdminSession represents an authenticated operator session.
type AdminSession struct {
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionManager handles operator-token authentication for the room-admin
// surface. The teacher authenticated operators via Kick OAuth and matched
// the logged-in user against a broadcaster ID; here there is no OAuth
// provider, so CreateSession instead compares the caller's token against a
// single static operator token configured at startup.
type SessionManager struct {
	mu sync.RWMutex

	// Active sessions (sessionID -> session)
	sessions map[string]*AdminSession

	// Secret key for signing session cookies
	secretKey []byte

	// operatorToken gates CreateSession. Empty disables admin auth.
	operatorToken string
}

// NewSessionManager creates a new session manager authorized by the given
// static operator token.
func NewSessionManager(operatorToken string) *SessionManager {
	secretKey := make([]byte, 32)
	if _, err := rand.Read(secretKey); err != nil {
		log.Printf("failed to generate session secret, using fallback")
		secretKey = []byte("room-admin-default-secret-key-32")
	}

	sm := &SessionManager{
		sessions:      make(map[string]*AdminSession),
		secretKey:     secretKey,
		operatorToken: operatorToken,
	}

	go sm.cleanupExpiredSessions()

	return sm
}

// SetOperatorToken updates the token CreateSession checks against.
func (sm *SessionManager) SetOperatorToken(token string) {
	sm.mu.Lock()
	sm.operatorToken = token
	sm.mu.Unlock()
}

// CreateSession creates a new admin session if the supplied token matches
// the configured operator token.
func (sm *SessionManager) CreateSession(token string) (string, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.operatorToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(sm.operatorToken)) != 1 {
		return "", fmt.Errorf("unauthorized: invalid operator token")
	}

	sessionID := generateSessionID()
	session := &AdminSession{
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(SessionDuration),
	}
	sm.sessions[sessionID] = session

	return sessionID, nil
}

// GetSession retrieves a session by ID
func (sm *SessionManager) GetSession(sessionID string) *AdminSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil
	}

	if time.Now().After(session.ExpiresAt) {
		return nil
	}

	return session
}

// DeleteSession removes a session
func (sm *SessionManager) DeleteSession(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, sessionID)
}

// ValidateSession checks if a request has a valid session
func (sm *SessionManager) ValidateSession(r *http.Request) *AdminSession {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil
	}

	sessionID, err := sm.decodeCookie(cookie.Value)
	if err != nil {
		return nil
	}

	return sm.GetSession(sessionID)
}

// SetSessionCookie sets the session cookie on the response
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, sessionID string) {
	encodedCookie := sm.encodeCookie(sessionID)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encodedCookie,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: CookieHTTPOnly,
		Secure:   CookieSecure,
		SameSite: CookieSameSite,
	})
}

// ClearSessionCookie removes the session cookie
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: CookieHTTPOnly,
		Secure:   CookieSecure,
		SameSite: CookieSameSite,
	})
}

// encodeCookie creates a signed cookie value
func (sm *SessionManager) encodeCookie(sessionID string) string {
	mac := hmac.New(sha256.New, sm.secretKey)
	mac.Write([]byte(sessionID))
	signature := hex.EncodeToString(mac.Sum(nil))

	return base64.URLEncoding.EncodeToString([]byte(sessionID + "." + signature))
}

// decodeCookie verifies and extracts the session ID from cookie
func (sm *SessionManager) decodeCookie(cookieValue string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(cookieValue)
	if err != nil {
		return "", fmt.Errorf("invalid cookie encoding")
	}

	parts := strings.SplitN(string(decoded), ".", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid cookie format")
	}

	sessionID := parts[0]
	providedSig := parts[1]

	mac := hmac.New(sha256.New, sm.secretKey)
	mac.Write([]byte(sessionID))
	expectedSig := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(providedSig), []byte(expectedSig)) {
		return "", fmt.Errorf("invalid cookie signature")
	}

	return sessionID, nil
}

// cleanupExpiredSessions removes expired sessions periodically
func (sm *SessionManager) cleanupExpiredSessions() {
	ticker := time.NewTicker(10 * time.Minute)
	for range ticker.C {
		sm.mu.Lock()
		now := time.Now()
		for id, session := range sm.sessions {
			if now.After(session.ExpiresAt) {
				delete(sm.sessions, id)
			}
		}
		sm.mu.Unlock()
	}
}

// generateSessionID creates a cryptographically random session ID
func generateSessionID() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// AdminAuthMiddleware creates middleware that requires a valid operator
// session.
func (sm *SessionManager) AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := sm.ValidateSession(r)
		if session == nil {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":   "unauthorized",
					"message": "operator authentication required",
				})
				return
			}

			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AuthStatus returns the current authentication status
type AuthStatus struct {
	Authenticated bool  `json:"authenticated"`
	ExpiresAt     int64 `json:"expires_at,omitempty"`
}

// HandleAuthStatus returns current auth status
func (sm *SessionManager) HandleAuthStatus(w http.ResponseWriter, r *http.Request) {
	session := sm.ValidateSession(r)

	status := AuthStatus{Authenticated: session != nil}
	if session != nil {
		status.ExpiresAt = session.ExpiresAt.Unix()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// HandleLogin validates a posted operator token and sets the session cookie.
func (sm *SessionManager) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	token := r.FormValue("token")

	sessionID, err := sm.CreateSession(token)
	if err != nil {
		http.Redirect(w, r, "/login?error=1", http.StatusFound)
		return
	}

	sm.SetSessionCookie(w, sessionID)
	http.Redirect(w, r, "/admin/", http.StatusFound)
}

// HandleLogout clears the session and redirects to login
func (sm *SessionManager) HandleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err == nil {
		sessionID, err := sm.decodeCookie(cookie.Value)
		if err == nil {
			sm.DeleteSession(sessionID)
		}
	}

	sm.ClearSessionCookie(w)

	http.Redirect(w, r, "/login", http.StatusFound)
}
