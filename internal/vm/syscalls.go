package vm

import (
	"strconv"

	"github.com/Robbe7730/RCPU-OS/internal/keyboard"
)

// syscall implements the SYS instruction: pop the syscall number and
// dispatch to the matching host routine (spec.md §4.4).
func (c *CPU) syscall() error {
	num, sp, err := c.Mem.Pop(c.SP)
	if err != nil {
		return err
	}
	c.SP = sp

	switch num {
	case 0:
		return c.sysPrintf()
	case 1:
		return c.sysFgets()
	case 2:
		return c.sysGetc()
	default:
		return &BadSyscallError{Number: num}
	}
}

// sysPrintf pops fmt_ptr and walks guest memory one word at a time, using
// the low byte of each word as an ASCII character. %d pops and prints an
// unsigned decimal, %c pops and prints one character, %s pops a pointer and
// recurses with formatting disabled, %% prints a literal percent (spec.md
// §4.4, syscall 0).
func (c *CPU) sysPrintf() error {
	ptr, sp, err := c.Mem.Pop(c.SP)
	if err != nil {
		return err
	}
	c.SP = sp
	return c.printf(ptr, true)
}

func (c *CPU) printf(ptr uint16, formatting bool) error {
	addr := ptr
	pending := false
	for {
		word := c.Mem.Read(addr)
		addr++
		ch := byte(word)
		if ch == 0 {
			return nil
		}

		if pending {
			pending = false
			switch ch {
			case 'd':
				v, sp, err := c.Mem.Pop(c.SP)
				if err != nil {
					return err
				}
				c.SP = sp
				c.Console.WriteString(strconv.FormatUint(uint64(v), 10))
			case 'c':
				v, sp, err := c.Mem.Pop(c.SP)
				if err != nil {
					return err
				}
				c.SP = sp
				c.Console.WriteByte(byte(v))
			case 's':
				v, sp, err := c.Mem.Pop(c.SP)
				if err != nil {
					return err
				}
				c.SP = sp
				if err := c.printf(v, false); err != nil {
					return err
				}
			case '%':
				c.Console.WriteByte('%')
			default:
				return &BadFormatSpecError{Spec: ch}
			}
			continue
		}

		if formatting && ch == '%' {
			pending = true
			continue
		}
		c.Console.WriteByte(ch)
	}
}

// sysFgets pops buf_ptr, size, stream (in that pop order) and reads at most
// size keys from the keyboard queue into guest memory starting at buf_ptr,
// blocking via Waiter when the queue runs dry. A RawKeyF1 event or a decoded
// Unicode NUL terminates the read without being stored; a trailing NUL word
// is then always appended. The stack receives the total word count written,
// including that trailing NUL (spec.md §4.4, syscall 1).
func (c *CPU) sysFgets() error {
	bufPtr, sp, err := c.Mem.Pop(c.SP)
	if err != nil {
		return err
	}
	c.SP = sp

	size, sp, err := c.Mem.Pop(c.SP)
	if err != nil {
		return err
	}
	c.SP = sp

	stream, sp, err := c.Mem.Pop(c.SP)
	if err != nil {
		return err
	}
	c.SP = sp
	if stream != 0 {
		return &BadStreamError{Stream: stream}
	}

	var count uint16
	for count < size {
		k := c.waitForKey()
		if k.IsRaw {
			if k.Raw == keyboard.RawKeyF1 {
				break
			}
			continue
		}
		if k.Unicode == 0 {
			break
		}
		c.Mem.Write(bufPtr+count, uint16(k.Unicode))
		count++
	}

	c.Mem.Write(bufPtr+count, 0)
	count++

	sp, err = c.Mem.Push(c.SP, count)
	if err != nil {
		return err
	}
	c.SP = sp
	return nil
}

// waitForKey blocks (via Waiter) until the keyboard queue yields an event,
// simulating "enable interrupts and halt; retry on wake" for a hosted VM.
func (c *CPU) waitForKey() keyboard.Key {
	for {
		if k, ok := c.Keyboard.Pop(); ok {
			return k
		}
		c.Waiter.Wait()
	}
}

// sysGetc pops stream and drains at most one Unicode key from the queue
// without blocking, skipping any raw (non-character) keys ahead of it. It
// pushes the Unicode codepoint, or 0xFFFF if the queue holds nothing
// deliverable right now (spec.md §4.4, syscall 2).
func (c *CPU) sysGetc() error {
	stream, sp, err := c.Mem.Pop(c.SP)
	if err != nil {
		return err
	}
	c.SP = sp
	if stream != 0 {
		return &BadStreamError{Stream: stream}
	}

	var result uint16 = 0xFFFF
	for {
		k, ok := c.Keyboard.Pop()
		if !ok {
			break
		}
		if !k.IsRaw {
			result = uint16(k.Unicode)
			break
		}
	}

	sp, err = c.Mem.Push(c.SP, result)
	if err != nil {
		return err
	}
	c.SP = sp
	return nil
}
