package debugmon

import (
	"strings"
	"testing"

	"github.com/Robbe7730/RCPU-OS/internal/keyboard"
	"github.com/Robbe7730/RCPU-OS/internal/vm"
)

func asm(m *vm.Memory, addr uint16, op vm.Operation) {
	m.Write(addr, vm.Encode(op))
}

// recordingConsole captures printf output without importing the console
// package, matching the vm package's own test double.
type recordingConsole struct {
	strings.Builder
}

func (r *recordingConsole) WriteByte(b byte)     { r.Builder.WriteByte(b) }
func (r *recordingConsole) WriteString(s string) { r.Builder.WriteString(s) }

func writeString(m *vm.Memory, addr uint16, s string) {
	for i, ch := range []byte(s) {
		m.Write(addr+uint16(i), uint16(ch))
	}
	m.Write(addr+uint16(len(s)), 0)
}

// runUntilHalted drives the Lua-wrapped CPU exactly as a macro would: step
// until halted() is true or a fatal error surfaces.
const runUntilHaltedScript = `
	while not halted() do
		local err = step()
		if err then error(err) end
	end
`

// buildLoopProgram is the spec.md §8 scenario 3 fixture: count A from 0 to 3.
func buildLoopProgram() *vm.Memory {
	m := vm.NewMemory(8)
	asm(m, 0, vm.Operation{Kind: vm.KindLDV, Dst: vm.RegD, Imm: 3})
	asm(m, 1, vm.Operation{Kind: vm.KindLDV, Dst: vm.RegC, Imm: 2})
	asm(m, 2, vm.Operation{Kind: vm.KindATH, AthOp: vm.AthInc, Dst: vm.RegA, Mode: vm.WriteBackDst})
	asm(m, 3, vm.Operation{Kind: vm.KindJLT, Dst: vm.RegD, Src: vm.RegC})
	asm(m, 4, vm.Operation{Kind: vm.KindHLT})
	return m
}

func TestMonitorRunsScenarioToHalt(t *testing.T) {
	cpu := vm.NewCPU(buildLoopProgram(), nil, nil)
	mon := NewMonitor(cpu)
	defer mon.Close()

	err := mon.RunScript(`
		while not halted() do
			local err = step()
			if err then error(err) end
		end
	`)
	if err != nil {
		t.Fatalf("RunScript(): %v", err)
	}
	if cpu.A != 3 {
		t.Errorf("A = %d, want 3", cpu.A)
	}
}

func TestMonitorRegAndSetRegRoundTrip(t *testing.T) {
	cpu := vm.NewCPU(vm.NewMemory(4), nil, nil)
	mon := NewMonitor(cpu)
	defer mon.Close()

	if err := mon.RunScript(`setreg("B", 99)`); err != nil {
		t.Fatalf("RunScript(setreg): %v", err)
	}
	if cpu.B != 99 {
		t.Fatalf("cpu.B = %d, want 99 after setreg", cpu.B)
	}

	if err := mon.RunScript(`result = reg("B")`); err != nil {
		t.Fatalf("RunScript(reg): %v", err)
	}
	got := mon.L.GetGlobal("result")
	if got.String() != "99" {
		t.Errorf("reg(\"B\") = %v, want 99", got)
	}
}

func TestMonitorPeekPoke(t *testing.T) {
	cpu := vm.NewCPU(vm.NewMemory(4), nil, nil)
	mon := NewMonitor(cpu)
	defer mon.Close()

	if err := mon.RunScript(`poke(10, 4660)`); err != nil { // 0x1234
		t.Fatalf("RunScript(poke): %v", err)
	}
	if got := cpu.Mem.Read(10); got != 0x1234 {
		t.Errorf("Mem.Read(10) = %#04x, want 0x1234", got)
	}

	if err := mon.RunScript(`result = peek(10)`); err != nil {
		t.Fatalf("RunScript(peek): %v", err)
	}
	if got := mon.L.GetGlobal("result").String(); got != "4660" {
		t.Errorf("peek(10) = %v, want 4660", got)
	}
}

func TestMonitorRunRespectsMaxSteps(t *testing.T) {
	cpu := vm.NewCPU(buildLoopProgram(), nil, nil)
	mon := NewMonitor(cpu)
	defer mon.Close()

	if err := mon.RunScript(`run(1)`); err != nil {
		t.Fatalf("RunScript(run): %v", err)
	}
	if cpu.A != 0 {
		t.Errorf("A after one step = %d, want 0 (first instruction only loads D)", cpu.A)
	}
}

// buildPrintfProgram is the spec.md §8 scenario 4 fixture: "%d+%d=%d" with
// arguments 2, 3, 5, pushed in reverse so the left-to-right specifier walk
// pops them in order.
func buildPrintfProgram() (*vm.Memory, *recordingConsole) {
	m := vm.NewMemory(8)
	const fmtAddr = 1000
	writeString(m, fmtAddr, "%d+%d=%d")

	asm(m, 0, vm.Operation{Kind: vm.KindLDV, Dst: vm.RegA, Imm: 5})
	asm(m, 1, vm.Operation{Kind: vm.KindPSH, Src: vm.RegA})
	asm(m, 2, vm.Operation{Kind: vm.KindLDV, Dst: vm.RegA, Imm: 3})
	asm(m, 3, vm.Operation{Kind: vm.KindPSH, Src: vm.RegA})
	asm(m, 4, vm.Operation{Kind: vm.KindLDV, Dst: vm.RegA, Imm: 2})
	asm(m, 5, vm.Operation{Kind: vm.KindPSH, Src: vm.RegA})
	asm(m, 6, vm.Operation{Kind: vm.KindLDV, Dst: vm.RegA, Imm: fmtAddr})
	asm(m, 7, vm.Operation{Kind: vm.KindPSH, Src: vm.RegA})
	asm(m, 8, vm.Operation{Kind: vm.KindLDV, Dst: vm.RegA, Imm: 0})
	asm(m, 9, vm.Operation{Kind: vm.KindPSH, Src: vm.RegA})
	asm(m, 10, vm.Operation{Kind: vm.KindSYS})
	asm(m, 11, vm.Operation{Kind: vm.KindHLT})

	console := &recordingConsole{}
	return m, console
}

func TestMonitorRunsScenario4PrintfThroughLua(t *testing.T) {
	m, console := buildPrintfProgram()
	cpu := vm.NewCPU(m, console, keyboard.NewQueue())
	mon := NewMonitor(cpu)
	defer mon.Close()

	if err := mon.RunScript(runUntilHaltedScript); err != nil {
		t.Fatalf("RunScript(): %v", err)
	}
	if got := console.String(); got != "2+3=5" {
		t.Errorf("printf output = %q, want %q", got, "2+3=5")
	}
}

// buildFgetsProgram is the spec.md §8 scenario 5 fixture: keyboard queue
// pre-seeded with 'h', 'i', RawKey(F1); fgets(stream=0, size=8, buf=0x100).
func buildFgetsProgram() *vm.Memory {
	m := vm.NewMemory(8)
	const bufAddr = 0x100

	asm(m, 0, vm.Operation{Kind: vm.KindLDV, Dst: vm.RegA, Imm: 0}) // stream
	asm(m, 1, vm.Operation{Kind: vm.KindPSH, Src: vm.RegA})
	asm(m, 2, vm.Operation{Kind: vm.KindLDV, Dst: vm.RegA, Imm: 8}) // size
	asm(m, 3, vm.Operation{Kind: vm.KindPSH, Src: vm.RegA})
	asm(m, 4, vm.Operation{Kind: vm.KindLDV, Dst: vm.RegA, Imm: bufAddr})
	asm(m, 5, vm.Operation{Kind: vm.KindPSH, Src: vm.RegA})
	asm(m, 6, vm.Operation{Kind: vm.KindLDV, Dst: vm.RegA, Imm: 1}) // fgets
	asm(m, 7, vm.Operation{Kind: vm.KindPSH, Src: vm.RegA})
	asm(m, 8, vm.Operation{Kind: vm.KindSYS})
	asm(m, 9, vm.Operation{Kind: vm.KindPOP, Dst: vm.RegA})
	asm(m, 10, vm.Operation{Kind: vm.KindHLT})
	return m
}

func TestMonitorRunsScenario5FgetsThroughLua(t *testing.T) {
	kbd := keyboard.NewQueue()
	kbd.Push(keyboard.UnicodeKey('h'))
	kbd.Push(keyboard.UnicodeKey('i'))
	kbd.Push(keyboard.RawKeyEvent(keyboard.RawKeyF1))

	m := buildFgetsProgram()
	cpu := vm.NewCPU(m, &recordingConsole{}, kbd)
	mon := NewMonitor(cpu)
	defer mon.Close()

	if err := mon.RunScript(runUntilHaltedScript); err != nil {
		t.Fatalf("RunScript(): %v", err)
	}
	if cpu.A != 3 {
		t.Errorf("returned count = %d, want 3", cpu.A)
	}
	if got := m.Read(0x100); got != 'h' {
		t.Errorf("buf[0] = %q, want 'h'", got)
	}
	if got := m.Read(0x101); got != 'i' {
		t.Errorf("buf[1] = %q, want 'i'", got)
	}
	if got := m.Read(0x102); got != 0 {
		t.Errorf("buf[2] = %d, want 0 (trailing NUL)", got)
	}
}
