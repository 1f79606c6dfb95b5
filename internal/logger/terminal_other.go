//go:build !windows && !linux

package logger

import "syscall"

const tcgets = syscall.TIOCGETA
