//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"sigaddr/process"
	"sigaddr/process/memory_map"

	"golang.org/x/sys/unix"
)

// process_vm_readv uses the process_vm_readv syscall to read memory from another process
func process_vm_readv(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
) (int, error) {
	if len(localBuf) == 0 {
		return 0, nil
	}

	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(len(localBuf)),
	}

	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return 0, fmt.Errorf("process_vm_readv failed: %s (errno: %d)", errno.Error(), errno)
	}

	if int(n) != len(localBuf) {
		return int(n), fmt.Errorf("partial read: %d of %d bytes", n, len(localBuf))
	}

	return int(n), nil
}

// ReadMemory reads memory from the process at the specified address. The
// whole range must lie in one readable mapping.
func (p *LinuxProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.mu.Lock()
	pid := p.pid
	item := memory_map.IsValidAddress2(uint64(addr), p.mm)
	p.mu.Unlock()

	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	if item == nil || !item.IsReadable() || uint64(addr)+uint64(size) > item.End() {
		return nil, fmt.Errorf("read of %d bytes at 0x%x: %w", size, uint64(addr), process.ErrAddressNotMapped)
	}

	data := make([]byte, size)
	if _, err := process_vm_readv(pid, data, addr); err != nil {
		return nil, fmt.Errorf("failed to read process memory at 0x%x: %w", uint64(addr), err)
	}

	return data, nil
}
