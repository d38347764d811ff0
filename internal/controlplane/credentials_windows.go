//go:build windows

package controlplane

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// findLauncherCommandLine walks a process snapshot looking for
// launcherProcessName, then reads its command line out of the process's
// own memory via the Windows Native API (NtQueryInformationProcess +
// ReadProcessMemory), the usual approach when no higher-level API
// exposes another process's argv.
func findLauncherCommandLine() (string, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return "", fmt.Errorf("snapshot processes: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Process32First(snapshot, &entry); err != nil {
		return "", fmt.Errorf("enumerate processes: %w", err)
	}

	for {
		name := syscall.UTF16ToString(entry.ExeFile[:])
		if name == launcherProcessName {
			return readProcessCommandLine(entry.ProcessID)
		}
		if err := windows.Process32Next(snapshot, &entry); err != nil {
			break
		}
	}

	return "", ErrLauncherNotRunning
}

// readProcessCommandLine reads another process's command line via the
// Process Environment Block, the same mechanism Task Manager's "Command
// line" column uses.
func readProcessCommandLine(pid uint32) (string, error) {
	h, err := windows.OpenProcess(
		windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ,
		false, pid,
	)
	if err != nil {
		return "", fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(h)

	cmdline, err := queryProcessCommandLine(h)
	if err != nil {
		return "", fmt.Errorf("read command line of process %d: %w", pid, err)
	}
	return cmdline, nil
}
