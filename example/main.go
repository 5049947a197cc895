// Command example shows the registration code a signature generator emits for
// a module, and typed accessors over the resolved addresses.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"sigaddr/address"
	"sigaddr/process"
	"sigaddr/process_blob"
	"sigaddr/resolver"
	"sigaddr/view"
)

// GameState is the structure GameStatePtr points at.
type GameState struct {
	Tick      uint32
	Flags     uint32
	PlayerPtr uint64
	MapID     uint32
	_         uint32
}

// Generated for libgame.so.
var (
	GameStatePtr *resolver.StaticAddress
	PlayerVTable *resolver.StaticAddress
	TickHandler  *resolver.StaticAddress
)

func init() {
	// mov rax, [rip+disp32]; test rax, rax; jz
	GameStatePtr = resolver.MustRegister(address.MustDescriptor(
		"GameStatePtr",
		"48 8B 05 ?? ?? ?? ?? 48 85 C0 74 ??",
		address.WithPostOffset(3),
		address.WithMode(address.RelativePointer),
	))

	// lea rcx, [rip+disp32]; mov [rbx], rcx
	PlayerVTable = resolver.MustRegister(address.MustDescriptor(
		"PlayerVTable",
		"48 8D 0D ?? ?? ?? ?? 48 89 0B",
		address.WithPostOffset(3),
		address.WithMode(address.Relative),
	))

	TickHandler = resolver.MustRegister(address.MustDescriptor(
		"TickHandler",
		"55 48 89 E5 41 57 41 56 53 48 83 EC ??",
		address.WithSelection(address.SelectFirst()),
	))
}

// ReadGameState copies the live GameState out of img.
func ReadGameState(img process.Image) (GameState, error) {
	return view.ReadStatic[GameState](img, GameStatePtr)
}

// PlayerHealth follows GameState.PlayerPtr to the player's health field.
func PlayerHealth(img process.Image) (uint32, error) {
	return view.ReadStaticPath[uint32](img, GameStatePtr, 0x08, 0x10)
}

// PlayerMethods returns the first n entries of the player vtable.
func PlayerMethods(img process.Image, n int) ([]process.ProcessMemoryAddress, error) {
	addr, err := PlayerVTable.Value()
	if err != nil {
		return nil, err
	}
	return view.NewRemoteVTable(img, addr, n).Slots()
}

func main() {
	dumpFlag := flag.String("dump", "", "Directory of a saved libgame.so dump")
	fileFlag := flag.String("file", "", "libgame.so on disk")
	flag.Parse()

	var (
		img process.Image
		err error
	)
	switch {
	case *dumpFlag != "":
		img, err = process_blob.LoadDump(*dumpFlag)
	case *fileFlag != "":
		img, err = process_blob.LoadFile(*fileFlag, 0)
	default:
		fmt.Println("Error: --dump or --file is required")
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Error loading image: %v\n", err)
		os.Exit(1)
	}

	report, err := resolver.ResolveAll(context.Background(), img)
	if err != nil {
		fmt.Printf("Error resolving: %v\n", err)
		os.Exit(1)
	}
	if err := printReport(os.Stdout, img, report); err != nil {
		fmt.Printf("Error printing report: %v\n", err)
		os.Exit(1)
	}
}

// printReport writes the resolution report and the values behind the
// resolved addresses.
func printReport(w io.Writer, img process.Image, report *resolver.Report) error {
	if err := report.Render(w); err != nil {
		return err
	}

	// a degraded pass still serves the addresses that did resolve
	if state, err := ReadGameState(img); err == nil {
		fmt.Fprintf(w, "GameState: tick=%d flags=%#x player=%#x map=%d\n", state.Tick, state.Flags, state.PlayerPtr, state.MapID)
	} else {
		fmt.Fprintf(w, "GameState unavailable: %v\n", err)
	}

	if health, err := PlayerHealth(img); err == nil {
		fmt.Fprintf(w, "Player health: %d\n", health)
	}

	if methods, err := PlayerMethods(img, 4); err == nil {
		for i, m := range methods {
			fmt.Fprintf(w, "PlayerVTable[%d] = %s\n", i, m)
		}
	} else {
		fmt.Fprintf(w, "PlayerVTable unavailable: %v\n", err)
	}

	if addr, err := TickHandler.Value(); err == nil {
		fmt.Fprintf(w, "TickHandler = %s (+%#x)\n", addr, uint64(addr-img.BaseAddress()))
	}
	return nil
}
