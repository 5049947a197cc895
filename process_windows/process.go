//go:build windows

// Package process_windows reads module images out of live Windows processes.
package process_windows

import (
	"fmt"
	"sync"
	"unsafe"

	"sigaddr/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

// WindowsProcess is a read-only handle on a Windows process.
type WindowsProcess struct {
	pid    process.ProcessID
	handle windows.Handle
	log    *logger.Logger
	mu     sync.Mutex
}

// New creates a new WindowsProcess instance
func New() *WindowsProcess {
	return &WindowsProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
}

// NewWithPID creates a new WindowsProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (*WindowsProcess, error) {
	p := New()
	if err := p.Open(pid); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *WindowsProcess) Open(pid process.ProcessID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("OpenProcess %d failed: %w", pid, err)
	}

	p.pid = pid
	p.handle = handle
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))

	p.log.Infoln("Process opened")
	return nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != 0 {
		if err := windows.CloseHandle(p.handle); err != nil {
			return fmt.Errorf("CloseHandle failed: %w", err)
		}
		p.handle = 0
	}

	p.pid = 0
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))
	p.log.Infoln("Process closed")

	return nil
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// ReadMemory reads size bytes at addr with ReadProcessMemory.
func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == 0 {
		return nil, process.ErrProcessNotOpen
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	if err := windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(size), &bytesRead); err != nil {
		return nil, fmt.Errorf("ReadProcessMemory at 0x%x failed: %w: %w", uint64(addr), process.ErrAddressNotMapped, err)
	}

	if bytesRead != uintptr(size) {
		return nil, fmt.Errorf("read incomplete: expected %d, got %d", size, bytesRead)
	}

	return buf, nil
}

// PointerSize returns the pointer width of the process: 4 under WOW64 or on
// 32-bit Windows, 8 otherwise.
func (p *WindowsProcess) PointerSize() process.PointerSize {
	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	host := process.PointerSize(unsafe.Sizeof(uintptr(0)))

	var wow64 bool
	if err := windows.IsWow64Process(handle, &wow64); err != nil {
		p.log.Debugln("IsWow64Process failed, assuming", int(host), "byte pointers:", err)
		return host
	}
	if wow64 {
		return process.PointerSize32
	}
	if host == process.PointerSize64 {
		return process.PointerSize64
	}

	// a 32-bit reader: the OS is 64-bit only if the reader itself runs under WOW64
	var selfWow64 bool
	if err := windows.IsWow64Process(windows.CurrentProcess(), &selfWow64); err == nil && selfWow64 {
		return process.PointerSize64
	}
	return process.PointerSize32
}
