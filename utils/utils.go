package utils

import (
	"fmt"
)

func Min(x, y int) int {
	if x > y {
		return y
	}
	return x
}

// ByteCountSI formats b with decimal unit prefixes, e.g. "1.5 kB".
func ByteCountSI(b int64) string {
	const unit = 1000
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(b)/float64(div), "kMGTPE"[exp])
}
