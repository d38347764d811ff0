//go:build windows

package controlplane

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	ntdll                         = windows.NewLazySystemDLL("ntdll.dll")
	procNtQueryInformationProcess = ntdll.NewProc("NtQueryInformationProcess")
)

// processBasicInformation mirrors PROCESS_BASIC_INFORMATION; only the
// PebBaseAddress field is used here.
type processBasicInformation struct {
	ExitStatus                   uintptr
	PebBaseAddress               uintptr
	AffinityMask                 uintptr
	BasePriority                 uintptr
	UniqueProcessID              uintptr
	InheritedFromUniqueProcessID uintptr
}

// unicodeString mirrors UNICODE_STRING.
type unicodeString struct {
	Length        uint16
	MaximumLength uint16
	_             uint32 // padding for 8-byte alignment of Buffer on amd64
	Buffer        uintptr
}

// queryProcessCommandLine reads the target process's command line out of
// its Process Environment Block: PEB -> ProcessParameters ->
// CommandLine (a UNICODE_STRING whose Buffer points into the same
// process's address space).
func queryProcessCommandLine(h windows.Handle) (string, error) {
	var pbi processBasicInformation
	var retLen uint32

	r, _, _ := procNtQueryInformationProcess.Call(
		uintptr(h),
		0, // ProcessBasicInformation
		uintptr(unsafe.Pointer(&pbi)),
		unsafe.Sizeof(pbi),
		uintptr(unsafe.Pointer(&retLen)),
	)
	if r != 0 {
		return "", fmt.Errorf("NtQueryInformationProcess: status 0x%x", r)
	}

	// Offset of ProcessParameters within PEB (x64 layout).
	const processParametersOffset = 0x20
	// Offset of CommandLine within RTL_USER_PROCESS_PARAMETERS (x64 layout).
	const commandLineOffset = 0x70

	paramsAddr, err := readPointer(h, pbi.PebBaseAddress+processParametersOffset)
	if err != nil {
		return "", fmt.Errorf("read ProcessParameters pointer: %w", err)
	}

	var us unicodeString
	if err := readMemory(h, paramsAddr+commandLineOffset, unsafe.Pointer(&us), unsafe.Sizeof(us)); err != nil {
		return "", fmt.Errorf("read CommandLine UNICODE_STRING: %w", err)
	}
	if us.Length == 0 {
		return "", nil
	}

	buf := make([]uint16, us.Length/2)
	if err := readMemory(h, us.Buffer, unsafe.Pointer(&buf[0]), uintptr(us.Length)); err != nil {
		return "", fmt.Errorf("read CommandLine buffer: %w", err)
	}

	return syscall.UTF16ToString(buf), nil
}

func readPointer(h windows.Handle, addr uintptr) (uintptr, error) {
	var ptr uintptr
	if err := readMemory(h, addr, unsafe.Pointer(&ptr), unsafe.Sizeof(ptr)); err != nil {
		return 0, err
	}
	return ptr, nil
}

func readMemory(h windows.Handle, addr uintptr, buf unsafe.Pointer, size uintptr) error {
	var read uintptr
	if err := windows.ReadProcessMemory(h, addr, (*byte)(buf), size, &read); err != nil {
		return err
	}
	if read != size {
		return fmt.Errorf("short read: got %d of %d bytes", read, size)
	}
	return nil
}
