//go:build !headless

// beep.go - one-shot square-wave beep on HLT and on fatal host errors.
//
// Grounded on audio_backend_oto.go: an oto.Context created once, a Player
// reading from an io.Reader that synthesizes samples on demand rather than
// from a pre-rendered buffer. Kind selects burst length instead of the
// teacher's continuous chip playback, since this is a single startle tone,
// not a music backend.
package sound

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Kind selects which of the two host-audible events fired.
type Kind int

const (
	// KindHalt is the short beep the run loop emits on a clean HLT.
	KindHalt Kind = iota
	// KindFatal is the longer beep emitted when a fatal host error reaches
	// the halt loop (spec.md §7).
	KindFatal
)

const sampleRate = 44100

var (
	initOnce sync.Once
	ctx      *oto.Context
	initErr  error
)

func initContext() {
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}
	var ready chan struct{}
	ctx, ready, initErr = oto.NewContext(opts)
	if initErr == nil {
		<-ready
	}
}

// toneReader synthesizes a fixed-frequency square wave for a bounded number
// of samples, then reports io.EOF.
type toneReader struct {
	freq      float64
	remaining int
	pos       int
}

func (r *toneReader) Read(p []byte) (int, error) {
	n := len(p) / 4
	if n > r.remaining {
		n = r.remaining
	}
	for i := 0; i < n; i++ {
		t := float64(r.pos+i) / sampleRate
		v := float32(0.2)
		if math.Mod(t*r.freq, 1.0) >= 0.5 {
			v = -0.2
		}
		bits := math.Float32bits(v)
		p[4*i] = byte(bits)
		p[4*i+1] = byte(bits >> 8)
		p[4*i+2] = byte(bits >> 16)
		p[4*i+3] = byte(bits >> 24)
	}
	r.pos += n
	r.remaining -= n
	if r.remaining == 0 {
		return n * 4, io.EOF
	}
	return n * 4, nil
}

// Init forces the lazy oto context setup so startup failures surface during
// boot instead of on the first Beep call.
func Init() error {
	initOnce.Do(initContext)
	return initErr
}

// Beep synthesizes and plays a short tone, blocking until it finishes. Errors
// initializing the audio device are swallowed: a missing speaker must never
// stop the kernel from reaching its halt loop.
func Beep(kind Kind) {
	initOnce.Do(initContext)
	if initErr != nil || ctx == nil {
		return
	}

	freq, duration := 880.0, 80*time.Millisecond
	if kind == KindFatal {
		freq, duration = 220.0, 400*time.Millisecond
	}

	r := &toneReader{freq: freq, remaining: int(duration.Seconds() * sampleRate)}
	player := ctx.NewPlayer(r)
	player.Play()
	for player.IsPlaying() {
		time.Sleep(5 * time.Millisecond)
	}
	player.Close()
}
