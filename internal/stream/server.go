package stream

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/satindergrewal/tailortune/internal/artifact"
	"github.com/satindergrewal/tailortune/internal/audio"
	"github.com/satindergrewal/tailortune/internal/logger"
)

// Player is the part of the pipeline the server reports on and controls.
type Player interface {
	Status() (track audio.Track, position, duration time.Duration)
	Skip()
}

// Server routes the preview API and streams.
type Server struct {
	root     string
	player   Player
	playlist *Playlist
	http     http.Handler
	webrtc   http.Handler
	counts   func() (httpListeners, webrtcPeers int)
	router   chi.Router
	log      *logger.Logger
}

// ServerConfig wires the server's collaborators. Nil stream handlers leave
// the corresponding route unregistered.
type ServerConfig struct {
	Root     string
	Player   Player
	Playlist *Playlist
	HTTP     *HTTPHandler
	WebRTC   *WebRTCHandler
	Logger   *logger.Logger
}

// servable lists the files exposed under /users/{id}/.
var servable = map[string]string{
	artifact.AudioFile:       "audio/wav",
	artifact.SpectrogramFile: "image/png",
	artifact.PreferencesFile: "image/png",
	artifact.ManifestFile:    "application/json",
}

// NewServer builds the router.
func NewServer(cfg ServerConfig) *Server {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	s := &Server{
		root:     cfg.Root,
		player:   cfg.Player,
		playlist: cfg.Playlist,
		router:   chi.NewRouter(),
		log:      log,
	}
	s.counts = func() (int, int) {
		var h, w int
		if cfg.HTTP != nil {
			h = cfg.HTTP.broadcaster.ListenerCount()
		}
		if cfg.WebRTC != nil {
			w = cfg.WebRTC.PeerCount()
		}
		return h, w
	}
	if cfg.HTTP != nil {
		s.http = cfg.HTTP
	}
	if cfg.WebRTC != nil {
		s.webrtc = cfg.WebRTC
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/users", s.handleListUsers)
		r.Get("/users/{id}", s.handleGetUser)
		r.Get("/status", s.handleStatus)
		r.Post("/skip", s.handleSkip)
	})
	s.router.Get("/users/{id}/{file}", s.handleUserFile)

	if s.http != nil {
		s.router.Get("/stream", s.http.ServeHTTP)
	}
	if s.webrtc != nil {
		s.router.Post("/offer", s.webrtc.ServeHTTP)
		s.router.Options("/offer", handlePreflight)
	}
}

// handleListUsers returns every manifest under the output root.
// GET /api/users
func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	manifests, err := artifact.List(s.root)
	if err != nil {
		s.log.Error("Failed to list artifacts", "root", s.root, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if manifests == nil {
		manifests = []artifact.Manifest{}
	}
	writeJSON(w, http.StatusOK, manifests)
}

// handleGetUser returns one user's manifest.
// GET /api/users/{id}
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	m, err := artifact.ReadManifest(filepath.Join(s.root, artifact.DirName(chi.URLParam(r, "id"))))
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleUserFile serves one of the known artifact files.
// GET /users/{id}/{file}
func (s *Server) handleUserFile(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	contentType, ok := servable[file]
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	path := filepath.Join(s.root, artifact.DirName(chi.URLParam(r, "id")), file)
	w.Header().Set("Content-Type", contentType)
	http.ServeFile(w, r, path)
}

// handleStatus reports what the stream is playing.
// GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{}
	if s.player != nil {
		track, pos, dur := s.player.Status()
		body["user_id"] = track.UserID
		body["title"] = track.Title
		body["mood"] = track.Mood
		body["position"] = pos.Seconds()
		body["duration"] = dur.Seconds()
	}
	if s.playlist != nil {
		body["playlist"] = s.playlist.Status()
	}
	h, rtc := s.counts()
	body["http_listeners"] = h
	body["webrtc_listeners"] = rtc
	writeJSON(w, http.StatusOK, body)
}

// handleSkip moves the stream to the next track.
// POST /api/skip
func (s *Server) handleSkip(w http.ResponseWriter, _ *http.Request) {
	if s.player == nil {
		http.Error(w, "no player", http.StatusServiceUnavailable)
		return
	}
	s.player.Skip()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
