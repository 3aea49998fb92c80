// Command rcpuos is the hosted simulator entry point: it plays the role of
// the multiboot kernel's _start, minus the freestanding handoff (spec.md §1,
// §6). A directory of raw RCPU program images stands in for the loader's
// multiboot module list; everything downstream — the picker, the VM, the
// syscalls — is exactly the spec's kernel.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/Robbe7730/RCPU-OS/internal/bootstrap"
	"github.com/Robbe7730/RCPU-OS/internal/console"
	"github.com/Robbe7730/RCPU-OS/internal/keyboard"
	"github.com/Robbe7730/RCPU-OS/internal/klog"
	"github.com/Robbe7730/RCPU-OS/internal/multiboot"
	"github.com/Robbe7730/RCPU-OS/internal/sound"
	"github.com/Robbe7730/RCPU-OS/internal/vm"
)

// syntheticInfoEnd stands in for the physical address right after the real
// multiboot info structure a freestanding loader would have handed the
// kernel; the hosted simulator has no such structure, so it fabricates one
// large enough for any module this command is likely to be pointed at.
const syntheticInfoEnd = 0x2000

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: rcpuos <module-directory>")
		os.Exit(1)
	}

	modules, images, err := loadModules(os.Args[1])
	if err != nil {
		fmt.Printf("rcpuos: %v\n", err)
		os.Exit(1)
	}

	cons := console.NewWriter()
	kbd := keyboard.NewQueue()

	frontend, err := console.NewFrontend()
	if err != nil {
		klog.Fatalf("console", err)
		os.Exit(1)
	}
	cons.Attach(frontend)
	frontend.SetKeyHandler(func(k keyboard.Key) { kbd.Push(k) })

	var g errgroup.Group
	g.Go(frontend.Start)
	g.Go(sound.Init)
	if err := g.Wait(); err != nil {
		fatal("boot", err)
	}

	info := &multiboot.Info{
		MemoryAreas: []multiboot.MemoryArea{
			{Start: 0, End: 16 * 1024 * 1024, Available: true},
		},
	}

	picker := &bootstrap.Picker{Console: cons, Keyboard: kbd, Waiter: vm.DefaultWaiter()}
	chosen, err := picker.Run(modules)
	if err != nil {
		fatal("bootstrap", err)
	}

	cpu, err := bootstrap.Load(info, syntheticInfoEnd, images[modules[chosen].Name], cons, kbd)
	if err != nil {
		fatal("bootstrap", err)
	}

	if err := cpu.Run(); err != nil {
		fatal("vm", err)
	}
	sound.Beep(sound.KindHalt)
	haltLoop()
}

func loadModules(dir string) ([]multiboot.Module, map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read module directory %q: %w", dir, err)
	}

	var modules []multiboot.Module
	images := make(map[string][]byte)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("cannot read module %q: %w", e.Name(), err)
		}
		modules = append(modules, multiboot.Module{Name: e.Name()})
		images[e.Name()] = data
	}
	return modules, images, nil
}

// fatal logs, beeps the long tone, and parks the program in the halt loop —
// the fate of every error in spec.md §7.
func fatal(component string, err error) {
	klog.Fatalf(component, err)
	sound.Beep(sound.KindFatal)
	haltLoop()
}

func haltLoop() {
	select {}
}
