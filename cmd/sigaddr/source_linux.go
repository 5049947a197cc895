//go:build linux

package main

import (
	"sigaddr/process"
	"sigaddr/process_blob"
	"sigaddr/process_linux"
)

func findProcess(name string) (process.ProcessInfo, error) {
	return process_linux.OneByName(name)
}

func snapshotModule(pid process.ProcessID, module string) (*process_blob.ProcessDump, error) {
	return process_linux.OpenModule(pid, module)
}
