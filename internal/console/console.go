// Package console implements the VGA text-mode console: an 80×25 grid of
// (byte, foreground, background) cells, written to directly as the spec's
// boot environment would write to physical address 0xB8000 (spec.md §6).
// Scrolling is out of scope (spec.md §1, "deferred and considered a black
// box") — this console simply wraps to row 0 once the last row fills.
package console

import (
	"sync"

	"github.com/Robbe7730/RCPU-OS/internal/keyboard"
)

const (
	Width  = 80
	Height = 25
)

// Color is one of the 16 VGA 4-bit palette entries, usable as either the
// foreground or the background half of an attribute byte.
type Color uint8

const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGray
	DarkGray
	LightBlue
	LightGreen
	LightCyan
	LightRed
	LightMagenta
	Yellow
	White
)

// DefaultFG and DefaultBG give the console's boot-time colour, Yellow on
// Black (spec.md §6).
const (
	DefaultFG = Yellow
	DefaultBG = Black
)

// cell is one character position in the text buffer.
type cell struct {
	ch byte
	fg Color
	bg Color
}

// Frontend renders a Writer's cell grid to a real display and feeds decoded
// keyboard events back into the kernel, standing in for the physical VGA
// adapter and the IRQ1 scancode handler (spec.md §1). Exactly one Frontend
// implementation is compiled in, selected by the headless build tag.
type Frontend interface {
	// Start brings the frontend up: opens a window, or puts the terminal
	// into raw mode. It must not block past initial setup.
	Start() error
	// Stop tears the frontend down and restores any host terminal state.
	Stop() error
	// Render pushes a full-screen snapshot to the display.
	Render(cells [Height][Width]cell)
	// SetKeyHandler installs the callback invoked for every decoded key
	// event, simulating the IRQ1 handler pushing into the keyboard queue.
	SetKeyHandler(func(keyboard.Key))
}

// Writer is the VGA text console described in spec.md §1: write_byte,
// write_string, and positional put_char_at, plus colour selection. It is
// process-global and protected by a mutex so it can be locked safely from
// both interrupt and non-interrupt contexts (spec.md §5).
type Writer struct {
	mu       sync.Mutex
	cells    [Height][Width]cell
	row, col int
	fg, bg   Color
	dirty    bool

	frontend Frontend // optional live backend; nil keeps the writer buffer-only
}

// NewWriter returns a Writer with the default colours and an empty screen.
func NewWriter() *Writer {
	w := &Writer{fg: DefaultFG, bg: DefaultBG}
	w.clearLocked()
	return w
}

// Attach wires a live Frontend so writes are also pushed to a real display.
// Safe to call once during boot; nil detaches.
func (w *Writer) Attach(f Frontend) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frontend = f
}

func (w *Writer) clearLocked() {
	for r := 0; r < Height; r++ {
		for c := 0; c < Width; c++ {
			w.cells[r][c] = cell{ch: ' ', fg: w.fg, bg: w.bg}
		}
	}
	w.row, w.col = 0, 0
	w.dirty = true
}

// SetColor changes the colour used by subsequent WriteByte/WriteString calls.
func (w *Writer) SetColor(fg, bg Color) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fg, w.bg = fg, bg
}

// WriteByte writes one ASCII byte at the current cursor, advancing the
// cursor and handling newline and wrap-at-end-of-screen (spec.md §1).
func (w *Writer) WriteByte(b byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeByteLocked(b)
	w.pushLocked()
}

func (w *Writer) writeByteLocked(b byte) {
	if b == '\n' {
		w.row++
		w.col = 0
	} else {
		w.cells[w.row][w.col] = cell{ch: b, fg: w.fg, bg: w.bg}
		w.col++
		if w.col >= Width {
			w.col = 0
			w.row++
		}
	}
	if w.row >= Height {
		w.row = 0
	}
	w.dirty = true
}

// WriteString writes each byte of s in order.
func (w *Writer) WriteString(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := 0; i < len(s); i++ {
		w.writeByteLocked(s[i])
	}
	w.pushLocked()
}

// PutCharAt places a single character at an explicit row/column without
// moving the cursor, used by the bootstrap picker to draw its selection
// cursor glyph (spec.md §1, §4.5).
func (w *Writer) PutCharAt(row, col int, ch byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if row < 0 || row >= Height || col < 0 || col >= Width {
		return
	}
	w.cells[row][col] = cell{ch: ch, fg: w.fg, bg: w.bg}
	w.dirty = true
	w.pushLocked()
}

// At reports the byte currently shown at row/col, used by tests to assert on
// console output without a live frontend attached.
func (w *Writer) At(row, col int) byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cells[row][col].ch
}

func (w *Writer) pushLocked() {
	if w.frontend == nil || !w.dirty {
		return
	}
	w.dirty = false
	w.frontend.Render(w.cells)
}
