package api

import (
	"net/http"

	"dropzone/internal/room"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig contains all dependencies needed to construct the HTTP
// router. Designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Manager: room.NewManager(time.Minute, 24000, 24000),
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000,
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Manager owns every live room (required)
	Manager *room.Manager

	// RateLimiter is an optional pre-configured rate limiter.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is used only if RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	CORSOrigins []string

	// StaticFilesDir serves the admin panel. Defaults to "./admin-panel".
	StaticFilesDir string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool

	// SessionManager protects admin routes when EnableAdminAuth is set.
	SessionManager *SessionManager

	// EnableAdminAuth enables operator-token authentication for the admin panel.
	EnableAdminAuth bool

	// LoginPagePath is unused by the embedded login page today but kept
	// for parity with static-file-served admin panels.
	LoginPagePath string

	// OnRoomCreated, if set, is invoked after a room is created via
	// POST /api/rooms so the caller can wire up any per-room background
	// work (Server uses this to start the room's WebSocket pump).
	OnRoomCreated func(*room.Room)
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	manager       *room.Manager
	onRoomCreated func(*room.Room)
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// This function is PURE - no goroutines, no listeners - safe to use with
// httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{manager: cfg.Manager, onRoomCreated: cfg.OnRoomCreated}

	r.Route("/api", func(r chi.Router) {
		r.Post("/rooms", h.handleCreateRoom)
		r.Get("/rooms", h.handleListRooms)
		r.Get("/rooms/{roomID}/state", h.handleRoomState)
		r.Get("/rooms/{roomID}/stats", h.handleRoomStats)
		r.Get("/weapons", h.handleGetWeapons)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	staticDir := cfg.StaticFilesDir
	if staticDir == "" {
		staticDir = "./admin-panel"
	}

	r.Get("/login", handleLoginPage(cfg))
	r.Post("/login", func(w http.ResponseWriter, req *http.Request) {
		if cfg.SessionManager != nil {
			cfg.SessionManager.HandleLogin(w, req)
			return
		}
		http.Redirect(w, req, "/admin/", http.StatusFound)
	})
	r.Get("/logout", func(w http.ResponseWriter, req *http.Request) {
		if cfg.SessionManager != nil {
			cfg.SessionManager.HandleLogout(w, req)
		} else {
			http.Redirect(w, req, "/admin/", http.StatusFound)
		}
	})
	r.Get("/api/auth/status", func(w http.ResponseWriter, req *http.Request) {
		if cfg.SessionManager != nil {
			cfg.SessionManager.HandleAuthStatus(w, req)
		} else {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"authenticated":true,"message":"auth disabled"}`))
		}
	})

	if cfg.EnableAdminAuth && cfg.SessionManager != nil {
		r.Group(func(r chi.Router) {
			r.Use(cfg.SessionManager.AdminAuthMiddleware)
			r.Handle("/admin/*", http.StripPrefix("/admin/", http.FileServer(http.Dir(staticDir))))
			r.Get("/admin", func(w http.ResponseWriter, req *http.Request) {
				http.Redirect(w, req, "/admin/", http.StatusMovedPermanently)
			})
		})
	} else {
		r.Handle("/admin/*", http.StripPrefix("/admin/", http.FileServer(http.Dir(staticDir))))
		r.Get("/admin", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, "/admin/", http.StatusMovedPermanently)
		})
	}

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/admin/", http.StatusFound)
	})

	return r
}

// handleLoginPage returns the login page handler
func handleLoginPage(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.SessionManager != nil {
			session := cfg.SessionManager.ValidateSession(r)
			if session != nil {
				http.Redirect(w, r, "/admin/", http.StatusFound)
				return
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(loginPageHTML))
	}
}

// loginPageHTML is the embedded operator login page.
const loginPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Room Admin Login</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%, #16213e 50%, #0f3460 100%);
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            color: #fff;
        }
        .login-container {
            background: rgba(255, 255, 255, 0.05);
            backdrop-filter: blur(10px);
            border-radius: 20px;
            padding: 40px;
            width: 100%;
            max-width: 400px;
            border: 1px solid rgba(255, 255, 255, 0.1);
            box-shadow: 0 25px 50px rgba(0, 0, 0, 0.3);
        }
        .logo { text-align: center; margin-bottom: 30px; }
        .logo h1 {
            font-size: 2.2rem;
            background: linear-gradient(135deg, #4ecdc4, #44a08d);
            -webkit-background-clip: text;
            -webkit-text-fill-color: transparent;
            background-clip: text;
        }
        .logo p { color: #888; margin-top: 5px; }
        input[type="password"] {
            width: 100%;
            padding: 14px;
            margin-bottom: 16px;
            border-radius: 10px;
            border: 1px solid rgba(255, 255, 255, 0.15);
            background: rgba(255, 255, 255, 0.05);
            color: #fff;
            font-size: 1rem;
        }
        .login-btn {
            width: 100%;
            padding: 16px 24px;
            background: linear-gradient(135deg, #4ecdc4 0%, #44a08d 100%);
            color: #000;
            border: none;
            border-radius: 12px;
            font-size: 1.1rem;
            font-weight: 600;
            cursor: pointer;
        }
        .error-msg {
            background: rgba(255, 82, 82, 0.2);
            border: 1px solid rgba(255, 82, 82, 0.3);
            color: #ff5252;
            padding: 12px;
            border-radius: 8px;
            margin-bottom: 20px;
            text-align: center;
        }
    </style>
</head>
<body>
    <div class="login-container">
        <div class="logo">
            <h1>Room Admin</h1>
            <p>Operator Console</p>
        </div>

        <div id="error" class="error-msg" style="display: none;"></div>

        <form method="POST" action="/login">
            <input type="password" name="token" placeholder="Operator token" autofocus required>
            <button class="login-btn" type="submit">Sign in</button>
        </form>
    </div>

    <script>
        const params = new URLSearchParams(window.location.search);
        if (params.get('error') === '1') {
            document.getElementById('error').textContent = 'Invalid operator token.';
            document.getElementById('error').style.display = 'block';
        }
    </script>
</body>
</html>
`

// GetRateLimiterFromRouter extracts a rate limiter for test use.
func GetRateLimiterFromRouter(cfg RouterConfig) *IPRateLimiter {
	if cfg.RateLimiter != nil {
		return cfg.RateLimiter
	}
	rateLimitCfg := DefaultRateLimitConfig
	if cfg.RateLimitConfig != nil {
		rateLimitCfg = *cfg.RateLimitConfig
	}
	return NewIPRateLimiter(rateLimitCfg)
}
