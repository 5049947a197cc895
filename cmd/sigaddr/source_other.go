//go:build !linux && !windows

package main

import (
	"fmt"
	"runtime"

	"sigaddr/process"
	"sigaddr/process_blob"
)

func findProcess(name string) (process.ProcessInfo, error) {
	return process.ProcessInfo{}, fmt.Errorf("process lookup is not supported on %s", runtime.GOOS)
}

func snapshotModule(pid process.ProcessID, module string) (*process_blob.ProcessDump, error) {
	return nil, fmt.Errorf("live process images are not supported on %s", runtime.GOOS)
}
