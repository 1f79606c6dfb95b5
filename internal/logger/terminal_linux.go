//go:build linux

package logger

const tcgets = 0x5401
