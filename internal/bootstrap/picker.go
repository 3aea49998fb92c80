// Package bootstrap implements the boot-time program picker and the RCPU
// memory layout it hands off to (spec.md §4.5, §6 "Guest memory layout").
package bootstrap

import (
	"github.com/Robbe7730/RCPU-OS/internal/console"
	"github.com/Robbe7730/RCPU-OS/internal/keyboard"
	"github.com/Robbe7730/RCPU-OS/internal/multiboot"
	"github.com/Robbe7730/RCPU-OS/internal/vm"
)

// Waiter is invoked when the picker's input loop finds nothing queued,
// standing in for "halt the CPU until the next interrupt" (spec.md §4.5).
type Waiter interface {
	Wait()
}

// Picker renders the module list and tracks the cursor row. Console and
// Keyboard are the process-global instances spec.md §5 describes.
type Picker struct {
	Console  *console.Writer
	Keyboard *keyboard.Queue
	Waiter   Waiter
}

// Run draws the module list, moves the cursor on ArrowUp/ArrowDown, and
// returns the chosen index on Enter. It drains the whole keyboard backlog on
// each pass rather than taking one event at a time, matching spec.md's "with
// interrupts masked, drain all queued keys".
func (p *Picker) Run(modules []multiboot.Module) (int, error) {
	if len(modules) == 0 {
		return 0, &vm.BootFailureError{Reason: "no modules to choose from"}
	}

	for i, m := range modules {
		putStringAt(p.Console, i, 2, m.Name)
	}
	selected := 0
	putStringAt(p.Console, selected, 0, ">")

	confirmed := -1
	for confirmed < 0 {
		sawEvent := false
		p.Keyboard.Drain(func(k keyboard.Key) {
			sawEvent = true
			if !k.IsRaw {
				return
			}
			switch k.Raw {
			case keyboard.RawKeyArrowUp:
				if selected > 0 {
					putStringAt(p.Console, selected, 0, " ")
					selected--
					putStringAt(p.Console, selected, 0, ">")
				}
			case keyboard.RawKeyArrowDown:
				if selected < len(modules)-1 {
					putStringAt(p.Console, selected, 0, " ")
					selected++
					putStringAt(p.Console, selected, 0, ">")
				}
			case keyboard.RawKeyEnter:
				confirmed = selected
			}
		})
		if confirmed >= 0 {
			break
		}
		if !sawEvent {
			p.Waiter.Wait()
		}
	}
	return confirmed, nil
}

func putStringAt(w *console.Writer, row, col int, s string) {
	for i := 0; i < len(s); i++ {
		w.PutCharAt(row, col+i, s[i])
	}
}
