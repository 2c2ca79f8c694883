package stream

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/satindergrewal/tailortune/internal/artifact"
	"github.com/satindergrewal/tailortune/internal/audio"
	"github.com/satindergrewal/tailortune/internal/logger"
)

// Queue is the playback side of the pipeline.
type Queue interface {
	Enqueue(ctx context.Context, t audio.Track) error
	QueueSize() int
}

// PlaylistConfig holds playlist parameters.
type PlaylistConfig struct {
	BufferAhead  int           // tracks kept queued in the pipeline
	PollInterval time.Duration // wait between queue checks and rescans
}

// PlaylistStatus is the current state of the playlist.
type PlaylistStatus struct {
	Tracks    int `json:"tracks"`
	Position  int `json:"position"`
	QueueSize int `json:"queue_size"`
}

// Playlist cycles through every generated track under an output root,
// keeping the pipeline topped up. The output tree is rescanned at the end
// of every cycle so tracks generated while the server runs are picked up.
type Playlist struct {
	root  string
	queue Queue
	cfg   PlaylistConfig
	log   *logger.Logger

	mu     sync.RWMutex
	tracks []audio.Track
	pos    int
}

// NewPlaylist creates a playlist over the artifacts under root.
func NewPlaylist(root string, queue Queue, cfg PlaylistConfig, log *logger.Logger) *Playlist {
	if cfg.BufferAhead <= 0 {
		cfg.BufferAhead = 2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Playlist{root: root, queue: queue, cfg: cfg, log: log}
}

// Scan reloads the track list from disk and returns it.
func (p *Playlist) Scan() ([]audio.Track, error) {
	manifests, err := artifact.List(p.root)
	if err != nil {
		return nil, err
	}
	var tracks []audio.Track
	for _, m := range manifests {
		path := filepath.Join(p.root, artifact.DirName(m.UserID), artifact.AudioFile)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		tracks = append(tracks, audio.Track{UserID: m.UserID, Title: m.Title, Mood: m.Mood, Path: path})
	}

	p.mu.Lock()
	p.tracks = tracks
	if p.pos >= len(tracks) {
		p.pos = 0
	}
	p.mu.Unlock()
	return tracks, nil
}

// Status returns the current playlist state.
func (p *Playlist) Status() PlaylistStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PlaylistStatus{Tracks: len(p.tracks), Position: p.pos, QueueSize: p.queue.QueueSize()}
}

// Run keeps the queue filled until ctx is cancelled.
func (p *Playlist) Run(ctx context.Context) {
	if _, err := p.Scan(); err != nil {
		p.log.Warn("Playlist scan failed", "root", p.root, "error", err)
	}
	p.log.Info("Playlist started", "root", p.root, "tracks", p.Status().Tracks)

	for {
		if ctx.Err() != nil {
			return
		}
		if p.queue.QueueSize() >= p.cfg.BufferAhead {
			p.wait(ctx)
			continue
		}

		t, ok := p.next()
		if !ok {
			p.wait(ctx)
			if _, err := p.Scan(); err != nil {
				p.log.Warn("Playlist scan failed", "root", p.root, "error", err)
			}
			continue
		}
		if err := p.queue.Enqueue(ctx, t); err != nil {
			return
		}
		p.log.Debug("Track queued", "user", t.UserID, "title", t.Title)
	}
}

// next returns the track at the current position and advances it. At the
// end of the list the playlist rescans before wrapping around.
func (p *Playlist) next() (audio.Track, bool) {
	p.mu.Lock()
	if p.pos >= len(p.tracks) {
		p.mu.Unlock()
		if _, err := p.Scan(); err != nil {
			p.log.Warn("Playlist scan failed", "root", p.root, "error", err)
		}
		p.mu.Lock()
		p.pos = 0
	}
	defer p.mu.Unlock()
	if len(p.tracks) == 0 {
		return audio.Track{}, false
	}
	t := p.tracks[p.pos]
	p.pos++
	return t, true
}

func (p *Playlist) wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(p.cfg.PollInterval):
	}
}
