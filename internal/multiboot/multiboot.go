// Package multiboot parses the multiboot-2 boot information structure a
// compliant loader hands the kernel entry point: the list of physical memory
// areas and the list of loaded program modules (spec.md §6, "Boot handoff").
package multiboot

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	tagEnd       = 0
	tagModule    = 3
	tagMemoryMap = 6

	memoryAvailable = 1
)

// MemoryArea is one entry from the multiboot-2 memory map tag.
type MemoryArea struct {
	Start     uint64
	End       uint64
	Available bool
}

// Contains reports whether addr falls within [Start, End).
func (a MemoryArea) Contains(addr uint64) bool {
	return addr >= a.Start && addr < a.End
}

// Module is one loaded program image named by the boot loader.
type Module struct {
	Name  string
	Start uint32
	End   uint32
}

// Info is the parsed subset of the multiboot-2 information structure this
// kernel cares about: memory areas and modules (spec.md §6).
type Info struct {
	MemoryAreas []MemoryArea
	Modules     []Module
}

// Parse walks the multiboot-2 tag list starting at the beginning of data
// (data is the structure as the loader laid it out: a total-size/reserved
// header followed by 8-byte-aligned tags, terminated by a type-0 tag).
func Parse(data []byte) (*Info, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("multiboot: structure too short: %d bytes", len(data))
	}
	totalSize := binary.LittleEndian.Uint32(data[0:4])
	if int(totalSize) > len(data) {
		return nil, fmt.Errorf("multiboot: total_size %d exceeds buffer of %d bytes", totalSize, len(data))
	}

	info := &Info{}
	offset := 8
	for offset+8 <= int(totalSize) {
		tagType := binary.LittleEndian.Uint32(data[offset:])
		tagSize := binary.LittleEndian.Uint32(data[offset+4:])
		if tagType == tagEnd {
			break
		}
		if tagSize < 8 || offset+int(tagSize) > int(totalSize) {
			return nil, fmt.Errorf("multiboot: tag type %d has invalid size %d at offset %d", tagType, tagSize, offset)
		}
		payload := data[offset+8 : offset+int(tagSize)]

		switch tagType {
		case tagMemoryMap:
			areas, err := parseMemoryMap(payload)
			if err != nil {
				return nil, err
			}
			info.MemoryAreas = append(info.MemoryAreas, areas...)
		case tagModule:
			mod, err := parseModule(payload)
			if err != nil {
				return nil, err
			}
			info.Modules = append(info.Modules, mod)
		}

		offset += int(tagSize)
		offset = align8(offset)
	}

	return info, nil
}

func align8(offset int) int {
	return (offset + 7) &^ 7
}

// parseMemoryMap reads the type-6 tag body: entry_size, entry_version, then
// entry_size-wide entries of {base_addr u64, length u64, type u32, reserved u32}.
func parseMemoryMap(payload []byte) ([]MemoryArea, error) {
	if len(payload) < 8 {
		return nil, fmt.Errorf("multiboot: memory map tag too short: %d bytes", len(payload))
	}
	entrySize := binary.LittleEndian.Uint32(payload[0:4])
	if entrySize < 24 {
		return nil, fmt.Errorf("multiboot: memory map entry size %d too small", entrySize)
	}

	var areas []MemoryArea
	for off := 8; off+int(entrySize) <= len(payload); off += int(entrySize) {
		entry := payload[off : off+int(entrySize)]
		base := binary.LittleEndian.Uint64(entry[0:8])
		length := binary.LittleEndian.Uint64(entry[8:16])
		kind := binary.LittleEndian.Uint32(entry[16:20])
		areas = append(areas, MemoryArea{
			Start:     base,
			End:       base + length,
			Available: kind == memoryAvailable,
		})
	}
	return areas, nil
}

// parseModule reads the type-3 tag body: mod_start u32, mod_end u32, then a
// NUL-terminated name filling the remainder of the tag.
func parseModule(payload []byte) (Module, error) {
	if len(payload) < 8 {
		return Module{}, fmt.Errorf("multiboot: module tag too short: %d bytes", len(payload))
	}
	start := binary.LittleEndian.Uint32(payload[0:4])
	end := binary.LittleEndian.Uint32(payload[4:8])

	name := payload[8:]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return Module{Name: string(name), Start: start, End: end}, nil
}

// RegionContaining returns the available memory area containing addr, per
// spec.md §9's resolved open question ("pick the region that contains
// end(multiboot_info)", not "the last area >= 64 KiB").
func (info *Info) RegionContaining(addr uint64) (MemoryArea, bool) {
	for _, a := range info.MemoryAreas {
		if a.Available && a.Contains(addr) {
			return a, true
		}
	}
	return MemoryArea{}, false
}
