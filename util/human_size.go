// Package util contains any functions used across the application that don't match
// any other package
package util

import "fmt"

const (
	oneKB = 1 << 10
	oneMB = 1 << 20
	oneGB = 1 << 30
)

// HumanSize formats a byte count the way it's shown on details pages and in
// size limit errors, e.g. "4.2 MB" or "123 bytes".
func HumanSize(size int64) string {
	switch {
	case size >= oneGB:
		return fmt.Sprintf("%.1f GB", float64(size)/oneGB)
	case size >= oneMB:
		return fmt.Sprintf("%.1f MB", float64(size)/oneMB)
	case size >= oneKB:
		return fmt.Sprintf("%.1f KB", float64(size)/oneKB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
