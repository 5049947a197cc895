//go:build linux

package memory_map

import (
	"strings"
	"testing"
)

const sampleMaps = `55d0c0a00000-55d0c0a2c000 r--p 00000000 08:02 173521 /usr/bin/game server
55d0c0a2c000-55d0c0b00000 r-xp 0002c000 08:02 173521 /usr/bin/game server
55d0c0b00000-55d0c0b10000 rw-p 00100000 08:02 173521 /usr/bin/game server
55d0c1000000-55d0c1021000 rw-p 00000000 00:00 0 [heap]
7f0000000000-7f0000001000 ---p 00000000 00:00 0
garbage line
`

func TestParseMaps(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(sampleMaps))
	if err != nil {
		t.Fatalf("parse failed - %v", err)
	}

	if len(mm) != 5 {
		t.Fatalf("expected 5 mappings - got %d", len(mm))
	}

	text := mm[1]
	if text.Address != 0x55d0c0a2c000 || text.Size != 0xd4000 || text.Offset != 0x2c000 {
		t.Fatalf("unexpected text mapping %+v", text)
	}
	if text.Path != "/usr/bin/game server" || !text.IsExecutable() || text.IsWritable() {
		t.Fatalf("unexpected text mapping %+v", text)
	}

	if mm[4].Path != "" || mm[4].IsReadable() {
		t.Fatalf("expected anonymous unreadable mapping - got %+v", mm[4])
	}

	module := FilterByPath(mm, "game server")
	if len(module) != 3 {
		t.Fatalf("expected 3 module mappings - got %d", len(module))
	}

	if item := IsValidAddress2(0x55d0c0a2c010, mm); item == nil || item.Address != 0x55d0c0a2c000 {
		t.Fatalf("expected lookup to find the text mapping - got %v", item)
	}
	if item := IsValidAddress2(0x55d0c0b10000, mm); item != nil {
		t.Fatalf("expected gap to be unmapped - got %v", item)
	}
}

const bssMaps = `555555554000-555555556000 r--p 00000000 08:02 1001 /usr/bin/game
555555556000-555555558000 r-xp 00002000 08:02 1001 /usr/bin/game
555555558000-555555559000 rw-p 00004000 08:02 1001 /usr/bin/game
555555559000-55555555b000 rw-p 00000000 00:00 0
55555555c000-55555557d000 rw-p 00000000 00:00 0 [heap]
7f0000000000-7f0000010000 rw-p 00000000 00:00 0
`

func TestModuleMappingsIncludesBSS(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(bssMaps))
	if err != nil {
		t.Fatalf("parse failed - %v", err)
	}

	module := ModuleMappings(mm, "game")
	if len(module) != 4 {
		t.Fatalf("expected 3 file mappings and the bss tail - got %d", len(module))
	}

	bss := module[3]
	if bss.Address != 0x555555559000 || bss.Path != "" || !bss.IsWritable() {
		t.Fatalf("expected anonymous bss at 0x555555559000 - got %+v", bss)
	}

	// a module without an adjacent anonymous mapping gets none
	if module := ModuleMappings(mm[:3], "game"); len(module) != 3 {
		t.Fatalf("expected 3 mappings - got %d", len(module))
	}

	if module := ModuleMappings(mm, "other"); module != nil {
		t.Fatalf("expected no mappings for an unknown module - got %v", module)
	}
}
