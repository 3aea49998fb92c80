//go:build headless

// beep_headless.go - silent stand-in so headless runs (and tests) make no sound.
package sound

// Kind selects which of the two host-audible events fired.
type Kind int

const (
	KindHalt Kind = iota
	KindFatal
)

// Beep is a no-op under the headless build tag.
func Beep(Kind) {}

// Init is a no-op under the headless build tag.
func Init() error { return nil }
