package vm

import (
	"strings"
	"testing"

	"github.com/Robbe7730/RCPU-OS/internal/keyboard"
)

// recordingConsole captures everything the printf syscall writes, standing
// in for console.Writer without importing the console package.
type recordingConsole struct {
	strings.Builder
}

func (r *recordingConsole) WriteByte(b byte)   { r.Builder.WriteByte(b) }
func (r *recordingConsole) WriteString(s string) { r.Builder.WriteString(s) }

// panicWaiter fails the test instead of sleeping forever if fgets ever blocks
// on a queue this test expected to stay non-empty.
type panicWaiter struct{ calls int }

func (w *panicWaiter) Wait() {
	w.calls++
	if w.calls > 1000 {
		panic("fgets blocked far longer than this test's pre-seeded queue should allow")
	}
}

func writeString(m *Memory, addr uint16, s string) {
	for i, ch := range []byte(s) {
		m.Write(addr+uint16(i), uint16(ch))
	}
	m.Write(addr+uint16(len(s)), 0)
}

func TestPrintfWithTwoSubstitutions(t *testing.T) {
	m := NewMemory(8)
	const fmtAddr = 1000
	writeString(m, fmtAddr, "A=%d,B=%c")

	// Stack is LIFO: push the last-consumed argument first so the specifier
	// walk (left to right) pops them in the order they appear.
	asm(m, 0, Operation{Kind: KindLDV, Dst: RegA, Imm: 'X'})
	asm(m, 1, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 2, Operation{Kind: KindLDV, Dst: RegA, Imm: 5})
	asm(m, 3, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 4, Operation{Kind: KindLDV, Dst: RegA, Imm: fmtAddr})
	asm(m, 5, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 6, Operation{Kind: KindLDV, Dst: RegA, Imm: 0})
	asm(m, 7, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 8, Operation{Kind: KindSYS})
	asm(m, 9, Operation{Kind: KindHLT})

	console := &recordingConsole{}
	c := NewCPU(m, console, keyboard.NewQueue())
	if err := c.Run(); err != nil {
		t.Fatalf("Run(): %v", err)
	}
	if got := console.String(); got != "A=5,B=X" {
		t.Errorf("printf output = %q, want %q", got, "A=5,B=X")
	}
}

func TestPrintfUnknownSpecifierIsFatal(t *testing.T) {
	m := NewMemory(8)
	const fmtAddr = 1000
	writeString(m, fmtAddr, "%q")

	asm(m, 0, Operation{Kind: KindLDV, Dst: RegA, Imm: fmtAddr})
	asm(m, 1, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 2, Operation{Kind: KindLDV, Dst: RegA, Imm: 0})
	asm(m, 3, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 4, Operation{Kind: KindSYS})

	c := NewCPU(m, &recordingConsole{}, keyboard.NewQueue())
	err := c.Run()
	if _, ok := err.(*BadFormatSpecError); !ok {
		t.Errorf("error = %T, want *BadFormatSpecError", err)
	}
}

func TestFgetsTerminatedByF1(t *testing.T) {
	m := NewMemory(8)
	const bufAddr = 0x100

	asm(m, 0, Operation{Kind: KindLDV, Dst: RegA, Imm: 0}) // stream
	asm(m, 1, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 2, Operation{Kind: KindLDV, Dst: RegA, Imm: 8}) // size
	asm(m, 3, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 4, Operation{Kind: KindLDV, Dst: RegA, Imm: bufAddr})
	asm(m, 5, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 6, Operation{Kind: KindLDV, Dst: RegA, Imm: 1}) // fgets
	asm(m, 7, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 8, Operation{Kind: KindSYS})
	asm(m, 9, Operation{Kind: KindPOP, Dst: RegA})
	asm(m, 10, Operation{Kind: KindHLT})

	kbd := keyboard.NewQueue()
	kbd.Push(keyboard.UnicodeKey('h'))
	kbd.Push(keyboard.UnicodeKey('i'))
	kbd.Push(keyboard.RawKeyEvent(keyboard.RawKeyF1))

	c := NewCPU(m, &recordingConsole{}, kbd)
	c.Waiter = &panicWaiter{}
	if err := c.Run(); err != nil {
		t.Fatalf("Run(): %v", err)
	}

	if c.A != 3 {
		t.Errorf("returned count = %d, want 3", c.A)
	}
	if got := m.Read(bufAddr); got != 'h' {
		t.Errorf("buf[0] = %q, want 'h'", got)
	}
	if got := m.Read(bufAddr + 1); got != 'i' {
		t.Errorf("buf[1] = %q, want 'i'", got)
	}
	if got := m.Read(bufAddr + 2); got != 0 {
		t.Errorf("buf[2] = %d, want 0 (trailing NUL)", got)
	}
}

func TestGetcReturnsSentinelWhenEmpty(t *testing.T) {
	m := NewMemory(8)
	asm(m, 0, Operation{Kind: KindLDV, Dst: RegA, Imm: 0}) // stream
	asm(m, 1, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 2, Operation{Kind: KindLDV, Dst: RegA, Imm: 2}) // getc
	asm(m, 3, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 4, Operation{Kind: KindSYS})
	asm(m, 5, Operation{Kind: KindPOP, Dst: RegA})
	asm(m, 6, Operation{Kind: KindHLT})

	kbd := keyboard.NewQueue()
	c := NewCPU(m, &recordingConsole{}, kbd)
	if err := c.Run(); err != nil {
		t.Fatalf("Run(): %v", err)
	}
	if c.A != 0xFFFF {
		t.Errorf("A = %#04x, want 0xffff on an empty queue", c.A)
	}
}

func TestGetcReturnsFirstUnicodeKeySkippingRaw(t *testing.T) {
	m := NewMemory(8)
	asm(m, 0, Operation{Kind: KindLDV, Dst: RegA, Imm: 0})
	asm(m, 1, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 2, Operation{Kind: KindLDV, Dst: RegA, Imm: 2})
	asm(m, 3, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 4, Operation{Kind: KindSYS})
	asm(m, 5, Operation{Kind: KindPOP, Dst: RegA})
	asm(m, 6, Operation{Kind: KindHLT})

	kbd := keyboard.NewQueue()
	kbd.Push(keyboard.RawKeyEvent(keyboard.RawKeyArrowUp))
	kbd.Push(keyboard.UnicodeKey('q'))

	c := NewCPU(m, &recordingConsole{}, kbd)
	if err := c.Run(); err != nil {
		t.Fatalf("Run(): %v", err)
	}
	if c.A != uint16('q') {
		t.Errorf("A = %d, want %d ('q')", c.A, 'q')
	}
}

func TestBadStreamIsFatal(t *testing.T) {
	m := NewMemory(8)
	asm(m, 0, Operation{Kind: KindLDV, Dst: RegA, Imm: 1}) // non-zero stream
	asm(m, 1, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 2, Operation{Kind: KindLDV, Dst: RegA, Imm: 2}) // getc
	asm(m, 3, Operation{Kind: KindPSH, Src: RegA})
	asm(m, 4, Operation{Kind: KindSYS})

	c := NewCPU(m, &recordingConsole{}, keyboard.NewQueue())
	err := c.Run()
	if _, ok := err.(*BadStreamError); !ok {
		t.Errorf("error = %T, want *BadStreamError", err)
	}
}
