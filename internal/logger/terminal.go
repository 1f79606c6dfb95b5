//go:build !windows

package logger

import (
	"syscall"
	"unsafe"
)

// isTerminal reports whether fd refers to a terminal, via a TCGETS
// ioctl probe (no third-party terminal-detection library in the pack).
func isTerminal(fd uintptr) bool {
	var termios syscall.Termios
	_, _, errno := syscall.Syscall6(
		syscall.SYS_IOCTL,
		fd,
		tcgets,
		uintptr(unsafe.Pointer(&termios)),
		0, 0, 0,
	)
	return errno == 0
}
