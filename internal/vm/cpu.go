// Package vm implements the RCPU virtual machine: its register file,
// instruction decoder, flat memory and stack model, fetch-decode-execute
// loop, and the host-side syscall handlers it traps into (spec.md §1, "the
// core"). A CPU is owned exclusively by the goroutine that calls Run/Step;
// it is not safe for concurrent use (spec.md §5).
package vm

import (
	"time"

	"github.com/Robbe7730/RCPU-OS/internal/keyboard"
)

// ConsoleWriter is the subset of console.Writer the printf syscall needs.
// Defined locally so this package does not import the console package.
type ConsoleWriter interface {
	WriteByte(b byte)
	WriteString(s string)
}

// Waiter is invoked by fgets when the keyboard queue is empty, standing in
// for "enable interrupts and halt the CPU; retry on wake" (spec.md §4.4).
type Waiter interface {
	Wait()
}

// sleepWaiter is the default Waiter for a live run: a short sleep instead of
// a real HLT-with-interrupts-enabled, since this is a hosted VM.
type sleepWaiter struct{ d time.Duration }

func (w sleepWaiter) Wait() { time.Sleep(w.d) }

// DefaultWaiter sleeps a few milliseconds between keyboard queue polls.
func DefaultWaiter() Waiter { return sleepWaiter{d: 2 * time.Millisecond} }

// CPU is the RCPU register file plus its attached memory and I/O. A..D are
// the encodable general-purpose registers; IP and SP are touched only by
// control-flow, PSH/POP, CAL/RET (spec.md §3).
type CPU struct {
	A, B, C, D uint16
	IP, SP     uint16
	Running    bool

	Mem      *Memory
	Console  ConsoleWriter
	Keyboard *keyboard.Queue
	Waiter   Waiter
}

// NewCPU constructs a CPU with all registers zero and Running true — the
// only state HLT ever clears (spec.md §3, "The running bit").
func NewCPU(mem *Memory, console ConsoleWriter, kbd *keyboard.Queue) *CPU {
	return &CPU{
		Mem:      mem,
		Console:  console,
		Keyboard: kbd,
		Waiter:   DefaultWaiter(),
		Running:  true,
	}
}

// reg returns a pointer to one of the four encodable registers.
func (c *CPU) reg(r Reg) *uint16 {
	switch r {
	case RegA:
		return &c.A
	case RegB:
		return &c.B
	case RegC:
		return &c.C
	default:
		return &c.D
	}
}

// Step fetches the word at IP, decodes it, executes it, and — for every
// instruction that does not explicitly set IP itself — advances IP by one
// word modulo 2^16 (spec.md §4.3, §9 "fixes the behaviour").
func (c *CPU) Step() error {
	word := c.Mem.Read(c.IP)
	op, err := Decode(word)
	if err != nil {
		return err
	}

	advance := true

	switch op.Kind {
	case KindMOV:
		*c.reg(op.Dst) = *c.reg(op.Src)
	case KindLDV:
		*c.reg(op.Dst) = op.Imm
	case KindLDA:
		*c.reg(op.Dst) = c.Mem.Read(op.Imm)
	case KindLDM:
		c.Mem.Write(op.Imm, *c.reg(op.Dst))
	case KindLDR:
		*c.reg(op.Dst) = c.Mem.Read(*c.reg(op.Src))
	case KindLDP:
		c.Mem.Write(*c.reg(op.Dst), *c.reg(op.Src))
	case KindATH:
		if err := c.execATH(op); err != nil {
			return err
		}
	case KindCAL:
		c.IP++
		sp, err := c.Mem.Push(c.SP, c.IP)
		if err != nil {
			return err
		}
		c.SP = sp
		c.IP = *c.reg(op.Dst)
		advance = false
	case KindRET:
		v, sp, err := c.Mem.Pop(c.SP)
		if err != nil {
			return err
		}
		c.SP = sp
		c.IP = v
		advance = false
	case KindJLT:
		if c.A < *c.reg(op.Dst) {
			c.IP = *c.reg(op.Src)
			advance = false
		}
	case KindPSH:
		sp, err := c.Mem.Push(c.SP, *c.reg(op.Src))
		if err != nil {
			return err
		}
		c.SP = sp
	case KindPOP:
		v, sp, err := c.Mem.Pop(c.SP)
		if err != nil {
			return err
		}
		c.SP = sp
		*c.reg(op.Dst) = v
	case KindSYS:
		if err := c.syscall(); err != nil {
			return err
		}
	case KindHLT:
		c.Running = false
		advance = false
	case KindJMP:
		c.IP = op.Imm
		advance = false
	case KindJMR:
		c.IP = *c.reg(op.Src)
		advance = false
	}

	if advance {
		c.IP++
	}
	return nil
}

// execATH performs the ALU sub-operation carried by an ATH instruction and
// writes the result back to dst or src per Mode (spec.md §4.3). All
// arithmetic wraps modulo 2^16, Go's native uint16 behaviour for +, -, *,
// and <<.
func (c *CPU) execATH(op Operation) error {
	s := *c.reg(op.Src)
	d := *c.reg(op.Dst)

	var result uint16
	switch op.AthOp {
	case AthAdd:
		result = s + d
	case AthSub:
		result = d - s
	case AthMul:
		result = d * s
	case AthDiv:
		if s == 0 {
			return &DivByZeroError{}
		}
		result = d / s
	case AthShl:
		result = s << (op.Shift & 0x7)
	case AthShr:
		result = s >> (op.Shift & 0x7)
	case AthAnd:
		result = s & d
	case AthOr:
		result = s | d
	case AthXor:
		result = s ^ d
	case AthNot:
		result = ^s
	case AthInc:
		result = d + 1
	case AthDec:
		result = d - 1
	}

	switch op.Mode {
	case WriteBackDst:
		*c.reg(op.Dst) = result
	case WriteBackSrc:
		*c.reg(op.Src) = result
	}
	return nil
}

// Run steps the CPU until Running is false or an instruction faults. A fault
// stops the loop without touching Running — HLT is the only instruction
// that ever clears it (spec.md §3 invariant, §8 invariant 5).
func (c *CPU) Run() error {
	for c.Running {
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}
