// Package endian swaps 16-bit words between host and RCPU guest byte order.
//
// RCPU programme images and the guest stack are big-endian; the host VM keeps
// every word as a native uint16. Every guest-facing memory access goes
// through Swap so the in-memory image stays byte-identical to what the boot
// loader placed there (spec.md §3, "Endianness in the guest stack", §9).
package endian

// Swap reverses the two bytes of a 16-bit word. It is its own inverse, so the
// same call performs host→guest and guest→host conversion.
func Swap(v uint16) uint16 {
	return v<<8 | v>>8
}
