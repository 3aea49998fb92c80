// Package debugmon wraps a running vm.CPU with a gopher-lua scripting
// surface for single-stepping, register/memory inspection, and assertions
// from macros — grounded on the teacher's debug_monitor.go (a hand-rolled
// command console over a DebuggableCPU), reworked around a real embedded
// scripting language instead of a parsed command grammar, since this repo
// carries gopher-lua rather than the teacher's own text-command parser.
package debugmon

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/Robbe7730/RCPU-OS/internal/vm"
)

// Monitor is the only caller of *vm.CPU other than the interpreter itself
// (spec.md §5: "VM state is owned exclusively by the interpreter"). It never
// runs guest code concurrently with a script; scripts and the interpreter's
// own Run loop are mutually exclusive by construction — a Monitor drives the
// CPU entirely through step()/run(), it does not race a separate goroutine
// calling cpu.Run().
type Monitor struct {
	cpu *vm.CPU
	L   *lua.LState
}

// NewMonitor wraps cpu and registers the Lua-callable functions macros use.
func NewMonitor(cpu *vm.CPU) *Monitor {
	m := &Monitor{cpu: cpu, L: lua.NewState()}
	m.register()
	return m
}

// Close releases the Lua interpreter's resources.
func (m *Monitor) Close() {
	m.L.Close()
}

func (m *Monitor) register() {
	m.L.SetGlobal("step", m.L.NewFunction(m.luaStep))
	m.L.SetGlobal("run", m.L.NewFunction(m.luaRun))
	m.L.SetGlobal("reg", m.L.NewFunction(m.luaReg))
	m.L.SetGlobal("setreg", m.L.NewFunction(m.luaSetReg))
	m.L.SetGlobal("peek", m.L.NewFunction(m.luaPeek))
	m.L.SetGlobal("poke", m.L.NewFunction(m.luaPoke))
	m.L.SetGlobal("halted", m.L.NewFunction(m.luaHalted))
}

// RunScript executes a Lua macro against the wrapped CPU.
func (m *Monitor) RunScript(script string) error {
	return m.L.DoString(script)
}

func (m *Monitor) luaStep(L *lua.LState) int {
	if err := m.cpu.Step(); err != nil {
		L.Push(lua.LString(err.Error()))
		return 1
	}
	L.Push(lua.LNil)
	return 1
}

func (m *Monitor) luaRun(L *lua.LState) int {
	maxSteps := L.CheckInt(1)
	for i := 0; i < maxSteps && m.cpu.Running; i++ {
		if err := m.cpu.Step(); err != nil {
			L.Push(lua.LString(err.Error()))
			return 1
		}
	}
	L.Push(lua.LNil)
	return 1
}

func (m *Monitor) luaReg(L *lua.LState) int {
	v, err := m.regValue(L.CheckString(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (m *Monitor) luaSetReg(L *lua.LState) int {
	name := L.CheckString(1)
	val := uint16(L.CheckInt(2))
	if err := m.setRegValue(name, val); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (m *Monitor) luaPeek(L *lua.LState) int {
	addr := uint16(L.CheckInt(1))
	L.Push(lua.LNumber(m.cpu.Mem.Read(addr)))
	return 1
}

func (m *Monitor) luaPoke(L *lua.LState) int {
	addr := uint16(L.CheckInt(1))
	val := uint16(L.CheckInt(2))
	m.cpu.Mem.Write(addr, val)
	return 0
}

func (m *Monitor) luaHalted(L *lua.LState) int {
	L.Push(lua.LBool(!m.cpu.Running))
	return 1
}

func (m *Monitor) regValue(name string) (uint16, error) {
	switch name {
	case "A":
		return m.cpu.A, nil
	case "B":
		return m.cpu.B, nil
	case "C":
		return m.cpu.C, nil
	case "D":
		return m.cpu.D, nil
	case "IP":
		return m.cpu.IP, nil
	case "SP":
		return m.cpu.SP, nil
	default:
		return 0, fmt.Errorf("debugmon: unknown register %q", name)
	}
}

func (m *Monitor) setRegValue(name string, val uint16) error {
	switch name {
	case "A":
		m.cpu.A = val
	case "B":
		m.cpu.B = val
	case "C":
		m.cpu.C = val
	case "D":
		m.cpu.D = val
	case "IP":
		m.cpu.IP = val
	case "SP":
		m.cpu.SP = val
	default:
		return fmt.Errorf("debugmon: unknown register %q", name)
	}
	return nil
}
