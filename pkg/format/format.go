package format

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
)

// Bytes renders a byte count using binary (1024-based) units, e.g. 1536000
// renders as "1.465MiB".
func Bytes(bytes uint64) string {
	return units.BytesSize(float64(bytes))
}

// Duration formats duration in a readable way
func Duration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
