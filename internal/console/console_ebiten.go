//go:build !headless

// console_ebiten.go - windowed VGA console frontend.
//
// Grounded on video_backend_ebiten.go: a goroutine runs ebiten.RunGame while
// Start blocks on a "first frame drawn" channel, keyboard input is polled
// from Update via ebiten/inpututil exactly as handleKeyboardInput does, and
// Ctrl+Shift+V pastes host clipboard text through golang.design/x/clipboard
// as a run of Unicode key events. The text grid itself is rasterised with
// golang.org/x/image/font/basicfont, which needs no embedded font asset.
package console

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Robbe7730/RCPU-OS/internal/keyboard"
)

const (
	cellW = 8
	cellH = 16
)

var vgaPalette = [16]color.RGBA{
	{0, 0, 0, 255}, {0, 0, 170, 255}, {0, 170, 0, 255}, {0, 170, 170, 255},
	{170, 0, 0, 255}, {170, 0, 170, 255}, {170, 85, 0, 255}, {170, 170, 170, 255},
	{85, 85, 85, 255}, {85, 85, 255, 255}, {85, 255, 85, 255}, {85, 255, 255, 255},
	{255, 85, 85, 255}, {255, 85, 255, 255}, {255, 255, 85, 255}, {255, 255, 255, 255},
}

// EbitenFrontend renders the console in its own window and feeds ebiten
// keyboard/clipboard input back as keyboard.Key events.
type EbitenFrontend struct {
	mu      sync.RWMutex
	img     *image.RGBA
	screen  *ebiten.Image
	ready   chan struct{}
	handler func(keyboard.Key)

	clipboardOnce sync.Once
	clipboardOK   bool
}

// NewFrontend returns the ebiten-backed console/keyboard frontend compiled
// in by default (the headless build tag swaps in the terminal frontend).
func NewFrontend() (Frontend, error) {
	return &EbitenFrontend{
		img:   image.NewRGBA(image.Rect(0, 0, Width*cellW, Height*cellH)),
		ready: make(chan struct{}, 1),
	}, nil
}

func (e *EbitenFrontend) SetKeyHandler(fn func(keyboard.Key)) {
	e.mu.Lock()
	e.handler = fn
	e.mu.Unlock()
}

func (e *EbitenFrontend) Start() error {
	ebiten.SetWindowSize(Width*cellW*2, Height*cellH*2)
	ebiten.SetWindowTitle("RCPU-OS")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)

	go func() {
		if err := ebiten.RunGame(e); err != nil {
			fmt.Println("console: ebiten exited:", err)
		}
	}()
	<-e.ready
	return nil
}

func (e *EbitenFrontend) Stop() error {
	return nil
}

// Render rasterises the grid into the shared RGBA buffer; Draw uploads it to
// the GPU-backed ebiten.Image on the next frame.
func (e *EbitenFrontend) Render(cells [Height][Width]cell) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for r := 0; r < Height; r++ {
		for c := 0; c < Width; c++ {
			ce := cells[r][c]
			bg := vgaPalette[ce.bg&0xF]
			drawRect(e.img, c*cellW, r*cellH, cellW, cellH, bg)
			if ce.ch != ' ' && ce.ch != 0 {
				fg := vgaPalette[ce.fg&0xF]
				d := font.Drawer{
					Dst:  e.img,
					Src:  image.NewUniform(fg),
					Face: basicfont.Face7x13,
					Dot:  fixed.P(c*cellW, r*cellH+13),
				}
				d.DrawString(string(rune(ce.ch)))
			}
		}
	}
}

func drawRect(img *image.RGBA, x, y, w, h int, c color.RGBA) {
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			img.SetRGBA(xx, yy, c)
		}
	}
}

func (e *EbitenFrontend) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	e.handleInput()
	return nil
}

func (e *EbitenFrontend) Draw(screen *ebiten.Image) {
	e.mu.Lock()
	if e.screen == nil {
		e.screen = ebiten.NewImageFromImage(e.img)
	} else {
		e.screen.WritePixels(e.img.Pix)
	}
	e.mu.Unlock()
	screen.DrawImage(e.screen, nil)

	select {
	case e.ready <- struct{}{}:
	default:
	}
}

func (e *EbitenFrontend) Layout(_, _ int) (int, int) {
	return Width * cellW, Height * cellH
}

func (e *EbitenFrontend) emit(k keyboard.Key) {
	e.mu.RLock()
	h := e.handler
	e.mu.RUnlock()
	if h != nil {
		h(k)
	}
}

func (e *EbitenFrontend) handleInput() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		e.pasteClipboard()
	}

	for _, r := range ebiten.AppendInputChars(nil) {
		e.emit(keyboard.UnicodeKey(r))
	}

	type mapping struct {
		key ebiten.Key
		raw keyboard.RawKey
	}
	for _, m := range []mapping{
		{ebiten.KeyEnter, keyboard.RawKeyEnter},
		{ebiten.KeyNumpadEnter, keyboard.RawKeyEnter},
		{ebiten.KeyBackspace, keyboard.RawKeyBackspace},
		{ebiten.KeyEscape, keyboard.RawKeyEscape},
		{ebiten.KeyArrowUp, keyboard.RawKeyArrowUp},
		{ebiten.KeyArrowDown, keyboard.RawKeyArrowDown},
		{ebiten.KeyArrowLeft, keyboard.RawKeyArrowLeft},
		{ebiten.KeyArrowRight, keyboard.RawKeyArrowRight},
		{ebiten.KeyF1, keyboard.RawKeyF1},
	} {
		if inpututil.IsKeyJustPressed(m.key) {
			e.emit(keyboard.RawKeyEvent(m.raw))
		}
	}
}

func (e *EbitenFrontend) pasteClipboard() {
	e.clipboardOnce.Do(func() {
		e.clipboardOK = clipboard.Init() == nil
	})
	if !e.clipboardOK {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	for _, b := range data {
		if b == '\r' {
			continue
		}
		if b == '\n' {
			e.emit(keyboard.RawKeyEvent(keyboard.RawKeyEnter))
			continue
		}
		e.emit(keyboard.UnicodeKey(rune(b)))
	}
}
