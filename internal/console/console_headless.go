//go:build headless

// console_headless.go - raw-terminal VGA console frontend.
//
// Grounded on terminal_host.go's raw-mode stdin reader: puts the real
// terminal into raw mode with golang.org/x/term, reads bytes off stdin in a
// goroutine, and never blocks the caller. Rendering redraws the 80x25 grid
// with ANSI cursor-positioning and SGR colour escapes rather than writing to
// a physical 0xB8000 framebuffer — the only host-visible difference from the
// ebiten frontend in console_ebiten.go.
package console

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/Robbe7730/RCPU-OS/internal/keyboard"
)

// TerminalFrontend renders the console to the invoking terminal and decodes
// stdin bytes (including ANSI escape sequences for arrows and F-keys) into
// keyboard.Key events.
type TerminalFrontend struct {
	fd       int
	oldState *term.State
	handler  func(keyboard.Key)

	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewFrontend returns the terminal-backed console/keyboard frontend compiled
// in under the headless build tag.
func NewFrontend() (Frontend, error) {
	return &TerminalFrontend{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

func (t *TerminalFrontend) SetKeyHandler(fn func(keyboard.Key)) {
	t.handler = fn
}

func (t *TerminalFrontend) Start() error {
	t.fd = int(os.Stdin.Fd())
	if term.IsTerminal(t.fd) {
		old, err := term.MakeRaw(t.fd)
		if err != nil {
			return fmt.Errorf("console: failed to set raw mode: %w", err)
		}
		t.oldState = old
	}
	fmt.Print("\x1b[2J\x1b[H") // clear screen, home cursor

	go t.readLoop()
	return nil
}

func (t *TerminalFrontend) Stop() error {
	t.once.Do(func() { close(t.stopCh) })
	<-t.done
	if t.oldState != nil {
		_ = term.Restore(t.fd, t.oldState)
		t.oldState = nil
	}
	return nil
}

func (t *TerminalFrontend) readLoop() {
	defer close(t.done)
	r := bufio.NewReader(os.Stdin)
	var dec ansiDecoder
	for {
		select {
		case <-t.stopCh:
			return
		default:
		}
		b, err := r.ReadByte()
		if err != nil {
			return
		}
		if k, ok := dec.feed(b); ok && t.handler != nil {
			t.handler(k)
		}
	}
}

// Render redraws the full grid using ANSI cursor positioning, grouping
// consecutive same-colour cells per row to keep the escape sequence count
// small.
func (t *TerminalFrontend) Render(cells [Height][Width]cell) {
	var b strings.Builder
	b.WriteString("\x1b[H")
	for r := 0; r < Height; r++ {
		var curFG, curBG Color = 255, 255
		for c := 0; c < Width; c++ {
			ce := cells[r][c]
			if ce.fg != curFG || ce.bg != curBG {
				fmt.Fprintf(&b, "\x1b[%d;%dm", ansiFG(ce.fg), ansiBG(ce.bg))
				curFG, curBG = ce.fg, ce.bg
			}
			b.WriteByte(ce.ch)
		}
		b.WriteString("\x1b[0m\r\n")
	}
	fmt.Print(b.String())
}

func ansiFG(c Color) int {
	if c >= DarkGray {
		return 90 + int(c-DarkGray)
	}
	return 30 + int(c)
}

func ansiBG(c Color) int {
	if c >= DarkGray {
		return 100 + int(c-DarkGray)
	}
	return 40 + int(c)
}

// ansiDecoder turns a stream of terminal bytes into keyboard.Key events,
// recognising the CSI sequences a real terminal sends for arrow keys and the
// handful of named keys the bootstrap picker and fgets care about.
type ansiDecoder struct {
	state  int // 0 = idle, 1 = saw ESC, 2 = saw ESC [
}

const (
	ansiIdle = iota
	ansiEscape
	ansiCSI
)

func (d *ansiDecoder) feed(b byte) (keyboard.Key, bool) {
	switch d.state {
	case ansiIdle:
		switch b {
		case 0x1B:
			d.state = ansiEscape
			return keyboard.Key{}, false
		case '\r', '\n':
			return keyboard.RawKeyEvent(keyboard.RawKeyEnter), true
		case 0x7F, 0x08:
			return keyboard.RawKeyEvent(keyboard.RawKeyBackspace), true
		default:
			return keyboard.UnicodeKey(rune(b)), true
		}
	case ansiEscape:
		if b == '[' {
			d.state = ansiCSI
			return keyboard.Key{}, false
		}
		if b == 'O' {
			d.state = ansiCSI // OP (F1) uses the same single-letter tail as CSI
			return keyboard.Key{}, false
		}
		d.state = ansiIdle
		return keyboard.RawKeyEvent(keyboard.RawKeyEscape), true
	case ansiCSI:
		d.state = ansiIdle
		switch b {
		case 'A':
			return keyboard.RawKeyEvent(keyboard.RawKeyArrowUp), true
		case 'B':
			return keyboard.RawKeyEvent(keyboard.RawKeyArrowDown), true
		case 'C':
			return keyboard.RawKeyEvent(keyboard.RawKeyArrowRight), true
		case 'D':
			return keyboard.RawKeyEvent(keyboard.RawKeyArrowLeft), true
		case 'P':
			return keyboard.RawKeyEvent(keyboard.RawKeyF1), true
		default:
			return keyboard.Key{}, false
		}
	}
	return keyboard.Key{}, false
}
