package stream

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satindergrewal/tailortune/internal/artifact"
	"github.com/satindergrewal/tailortune/internal/audio"
)

// writeUser lays out one user's artifacts the way the batch run does.
func writeUser(t *testing.T, w *artifact.Writer, id, title string) {
	t.Helper()
	dir, err := w.Dir(id)
	require.NoError(t, err)

	s := make([]float32, 800)
	for i := range s {
		s[i] = float32(0.2 * math.Sin(float64(i)/10))
	}
	_, err = w.WriteAudio(dir, audio.Clip{Samples: s, SampleRate: 8000, Channels: 1})
	require.NoError(t, err)
	_, err = w.WriteManifest(dir, artifact.Manifest{UserID: id, Mood: "relaxing", Title: title, SampleRate: 8000})
	require.NoError(t, err)
}

type fakePlayer struct {
	mu      sync.Mutex
	skipped int
}

func (p *fakePlayer) Status() (audio.Track, time.Duration, time.Duration) {
	return audio.Track{UserID: "2", Title: "velvet ambient", Mood: "relaxing"}, 3 * time.Second, 10 * time.Second
}

func (p *fakePlayer) Skip() {
	p.mu.Lock()
	p.skipped++
	p.mu.Unlock()
}

func newTestServer(t *testing.T) (*Server, string, *fakePlayer) {
	t.Helper()
	root := t.TempDir()
	w := artifact.NewWriter(root)
	writeUser(t, w, "1", "still harbor")
	writeUser(t, w, "2", "velvet ambient")

	player := &fakePlayer{}
	b := NewBroadcaster()
	s := NewServer(ServerConfig{
		Root:   root,
		Player: player,
		HTTP:   NewHTTPHandler(b, nil),
		WebRTC: NewWebRTCHandler(b, nil),
	})
	return s, root, player
}

func do(s http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestListUsers(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(s, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []artifact.Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].UserID)
	assert.Equal(t, "velvet ambient", got[1].Title)
}

func TestListUsersEmptyRoot(t *testing.T) {
	s := NewServer(ServerConfig{Root: t.TempDir()})
	rec := do(s, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestGetUser(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(s, http.MethodGet, "/api/users/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var m artifact.Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "still harbor", m.Title)

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/users/99", "").Code)
}

func TestUserFile(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(s, http.MethodGet, "/users/1/music.wav", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, "RIFF", rec.Body.String()[:4])

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/users/1/secrets.txt", "").Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/users/1/spectrogram.png", "").Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/users/7/music.wav", "").Code)
}

func TestStatusAndSkip(t *testing.T) {
	s, _, player := newTestServer(t)

	rec := do(s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2", body["user_id"])
	assert.Equal(t, 3.0, body["position"])
	assert.Equal(t, 0.0, body["http_listeners"])

	rec = do(s, http.MethodPost, "/api/skip", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, player.skipped)

	assert.Equal(t, http.StatusMethodNotAllowed, do(s, http.MethodGet, "/api/skip", "").Code)
}

func TestOffer(t *testing.T) {
	s, _, _ := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/offer", "not json").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/offer", `{"type":"offer"}`).Code)

	rec := do(s, http.MethodOptions, "/offer", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestRoutesWithoutStreams(t *testing.T) {
	s := NewServer(ServerConfig{Root: t.TempDir()})
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/stream", "").Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodPost, "/offer", "{}").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(s, http.MethodPost, "/api/skip", "").Code)
}

func TestMP3Args(t *testing.T) {
	args := strings.Join(mp3Args(), " ")
	assert.Contains(t, args, "-f s16le -ar 48000 -ac 2 -i pipe:0")
	assert.Contains(t, args, "-b:a 192k")
	assert.True(t, strings.HasSuffix(args, "pipe:1"))
}

// fakeQueue records enqueued tracks and reports a fixed queue size.
type fakeQueue struct {
	mu     sync.Mutex
	tracks []audio.Track
	limit  int
}

func (q *fakeQueue) Enqueue(_ context.Context, t audio.Track) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, t)
	return nil
}

func (q *fakeQueue) QueueSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) >= q.limit {
		return q.limit
	}
	return 0
}

func (q *fakeQueue) users() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.tracks))
	for i, t := range q.tracks {
		out[i] = t.UserID
	}
	return out
}

func TestPlaylistScan(t *testing.T) {
	root := t.TempDir()
	w := artifact.NewWriter(root)
	writeUser(t, w, "1", "a")
	writeUser(t, w, "2", "b")

	// manifest without audio is skipped
	dir, err := w.Dir("3")
	require.NoError(t, err)
	_, err = w.WriteManifest(dir, artifact.Manifest{UserID: "3"})
	require.NoError(t, err)

	p := NewPlaylist(root, &fakeQueue{}, PlaylistConfig{}, nil)
	tracks, err := p.Scan()
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "a", tracks[0].Title)
	assert.Equal(t, "relaxing", tracks[1].Mood)
	assert.FileExists(t, tracks[1].Path)
}

func TestPlaylistCycles(t *testing.T) {
	root := t.TempDir()
	w := artifact.NewWriter(root)
	writeUser(t, w, "1", "a")
	writeUser(t, w, "2", "b")

	q := &fakeQueue{limit: 5}
	p := NewPlaylist(root, q, PlaylistConfig{BufferAhead: 5, PollInterval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(q.users()) >= 5 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"1", "2", "1", "2", "1"}, q.users()[:5])

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("playlist did not stop")
	}
	assert.Equal(t, 2, p.Status().Tracks)
}

func TestPlaylistWaitsForTracks(t *testing.T) {
	root := t.TempDir()
	q := &fakeQueue{limit: 1}
	p := NewPlaylist(root, q, PlaylistConfig{BufferAhead: 1, PollInterval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, q.users())

	writeUser(t, artifact.NewWriter(root), "9", "late")
	require.Eventually(t, func() bool { return len(q.users()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "9", q.users()[0])
}
