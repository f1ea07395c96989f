//go:build !linux
// +build !linux

// Package culite system memory stub for non-Linux platforms
package culite

// getSystemMemory returns total system memory in bytes
func getSystemMemory() uint64 {
	return fallbackSystemMemory
}
