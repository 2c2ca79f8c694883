package audio

import (
	"context"
	"sync"
	"time"

	"github.com/satindergrewal/tailortune/internal/logger"
)

// DecodeFunc turns a file path into interleaved stream-format PCM.
type DecodeFunc func(ctx context.Context, path string) ([]int16, error)

// deck is one decoded track and its play head, counted in frames.
type deck struct {
	track Track
	pcm   []int16
	head  int
}

func (d *deck) frames() int { return len(d.pcm) / FrameSamples }

func (d *deck) frame(i int) []int16 {
	return d.pcm[i*FrameSamples : (i+1)*FrameSamples]
}

// emitResult says what happened to a frame handed to emit.
type emitResult int

const (
	emitted emitResult = iota
	skipped
	stopped
)

// Pipeline plays queued tracks back to back as 20ms PCM frames at real-time
// rate. The tail of each track is blended into the head of the next one
// when the next track is already decoded.
type Pipeline struct {
	queue  chan Track
	out    chan []int16
	skip   chan struct{}
	fade   time.Duration
	decode DecodeFunc
	log    *logger.Logger

	mu       sync.RWMutex
	current  Track
	position time.Duration
	length   time.Duration
}

// NewPipeline returns a pipeline that decodes tracks with ffmpeg and blends
// consecutive tracks over crossfade.
func NewPipeline(crossfade time.Duration, log *logger.Logger) *Pipeline {
	return NewPipelineWithDecoder(crossfade, DecodeFile, log)
}

// NewPipelineWithDecoder is NewPipeline with a custom decoder.
func NewPipelineWithDecoder(crossfade time.Duration, decode DecodeFunc, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{
		queue:  make(chan Track, 8),
		out:    make(chan []int16, 100),
		skip:   make(chan struct{}, 1),
		fade:   crossfade,
		decode: decode,
		log:    log,
	}
}

// Frames returns the outgoing PCM frames. It is closed when Run returns.
func (p *Pipeline) Frames() <-chan []int16 {
	return p.out
}

// Enqueue adds a track to the playback queue. It blocks while the queue is
// full and gives up when ctx ends.
func (p *Pipeline) Enqueue(ctx context.Context, t Track) error {
	select {
	case p.queue <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueSize returns the number of tracks not yet handed to the decoder.
func (p *Pipeline) QueueSize() int {
	return len(p.queue)
}

// Skip ends the current track early. Extra calls before the skip lands are
// dropped.
func (p *Pipeline) Skip() {
	select {
	case p.skip <- struct{}{}:
	default:
	}
}

// Status reports the playing track with its position and length.
func (p *Pipeline) Status() (track Track, position, duration time.Duration) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.position, p.length
}

// Run plays until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	defer close(p.out)

	decoded := make(chan *deck, 4)
	go p.decodeLoop(ctx, decoded)

	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	var cur *deck
	for {
		if cur == nil {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-decoded:
				if !ok {
					return
				}
				cur = d
			}
		}

		next, ok := p.play(ctx, ticker.C, decoded, cur)
		if !ok {
			return
		}
		cur = next
	}
}

// decodeLoop feeds decoded decks to out in queue order. Tracks that fail to
// decode are logged and dropped.
func (p *Pipeline) decodeLoop(ctx context.Context, out chan<- *deck) {
	defer close(out)
	for {
		var t Track
		select {
		case <-ctx.Done():
			return
		case t = <-p.queue:
		}

		pcm, err := p.decode(ctx, t.Path)
		if err != nil {
			p.log.Warn("Decode failed", "user", t.UserID, "path", t.Path, "error", err)
			continue
		}
		select {
		case out <- &deck{track: t, pcm: pcm}:
		case <-ctx.Done():
			return
		}
	}
}

// crossfadeFrames is the blend length for a track of total frames, capped at
// half the track.
func (p *Pipeline) crossfadeFrames(total int) int {
	n := int(p.fade / FrameDuration)
	return max(0, min(n, total/2))
}

// play sends cur from its play head to the end. Once the blend zone is
// reached it looks for the next deck without waiting; if one is there the
// two are mixed and the next deck is returned with its head advanced past
// the blend. ok is false when ctx ends.
func (p *Pipeline) play(ctx context.Context, tick <-chan time.Time, decoded <-chan *deck, cur *deck) (next *deck, ok bool) {
	total := cur.frames()
	fade := p.crossfadeFrames(total)
	fadeAt := total - fade

	p.load(cur)
	p.log.Info("Now playing", "user", cur.track.UserID, "title", cur.track.Title, "frames", total)

	pulled := false
	for i := cur.head; i < total; i++ {
		if i == fadeAt && !pulled {
			next, pulled = p.tryNext(decoded), true
		}

		frame := cur.frame(i)
		if next != nil && i >= fadeAt {
			j := i - fadeAt
			if j < next.frames() {
				frame = CrossfadeFrames(frame, next.frame(j), float64(j)/float64(fade))
				next.head = j + 1
			}
		}

		switch p.emit(ctx, tick, frame) {
		case stopped:
			return nil, false
		case skipped:
			return next, true
		}
		p.seek(i)
	}

	if next != nil {
		p.log.Info("Crossfaded", "into", next.track.UserID, "title", next.track.Title)
		return next, true
	}
	if !pulled {
		next = p.tryNext(decoded)
	}
	return next, true
}

func (p *Pipeline) tryNext(decoded <-chan *deck) *deck {
	select {
	case d := <-decoded:
		return d
	default:
		return nil
	}
}

// emit waits for the next tick and sends frame.
func (p *Pipeline) emit(ctx context.Context, tick <-chan time.Time, frame []int16) emitResult {
	select {
	case <-ctx.Done():
		return stopped
	case <-p.skip:
		p.log.Info("Track skipped")
		return skipped
	case <-tick:
	}

	select {
	case p.out <- frame:
		return emitted
	case <-ctx.Done():
		return stopped
	}
}

func (p *Pipeline) load(d *deck) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = d.track
	p.position = time.Duration(d.head) * FrameDuration
	p.length = time.Duration(d.frames()) * FrameDuration
}

func (p *Pipeline) seek(frame int) {
	p.mu.Lock()
	p.position = time.Duration(frame) * FrameDuration
	p.mu.Unlock()
}
