//go:build windows

package main

import (
	"sigaddr/process"
	"sigaddr/process_blob"
	"sigaddr/process_windows"
)

func findProcess(name string) (process.ProcessInfo, error) {
	return process_windows.OneByName(name)
}

func snapshotModule(pid process.ProcessID, module string) (*process_blob.ProcessDump, error) {
	return process_windows.OpenModule(pid, module)
}
