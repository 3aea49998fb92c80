package bootstrap

import (
	"github.com/Robbe7730/RCPU-OS/internal/keyboard"
	"github.com/Robbe7730/RCPU-OS/internal/multiboot"
	"github.com/Robbe7730/RCPU-OS/internal/vm"
)

// stackRegionBytes is the byte offset of the stack region after RAM_base
// (spec.md §6: "Stack_base = RAM_base + 0x10000").
const stackRegionBytes = 0x10000

// NewMemory computes the guest RAM/stack layout spec.md §6 describes and
// allocates a vm.Memory sized to it: RAM_base is infoEnd (the address right
// after the multiboot info structure), Stack_base is RAM_base+0x10000, and
// Stack_end is the end of the available memory area containing RAM_base —
// the deterministic resolution of spec.md §9's open question, not "the last
// area >= 64 KiB".
func NewMemory(info *multiboot.Info, infoEnd uint64) (*vm.Memory, error) {
	area, ok := info.RegionContaining(infoEnd)
	if !ok {
		return nil, &vm.BootFailureError{Reason: "no available memory area contains the end of the multiboot info structure"}
	}

	stackBase := infoEnd + stackRegionBytes
	if stackBase >= area.End {
		return nil, &vm.BootFailureError{Reason: "available memory area too small to hold RAM plus any stack"}
	}
	stackWords := (area.End - stackBase) / 2

	return vm.NewMemory(int(stackWords)), nil
}

// Load builds a ready-to-run CPU over the chosen module's program image,
// using the memory layout NewMemory computed (spec.md §4.5, "construct an
// RCPUProgram over the chosen module").
func Load(info *multiboot.Info, infoEnd uint64, image []byte, console vm.ConsoleWriter, kbd *keyboard.Queue) (*vm.CPU, error) {
	mem, err := NewMemory(info, infoEnd)
	if err != nil {
		return nil, err
	}
	mem.LoadImage(image)
	return vm.NewCPU(mem, console, kbd), nil
}
