package status

import "fmt"

var sizeUnits = []string{"KB", "MB", "GB", "TB", "PB"}

// FormatSize форматирует размер в двоичных единицах с одним знаком после запятой:
// 512 → "512 B", 1024 → "1.0 KB", 1572864 → "1.5 MB".
func FormatSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	value := float64(n) / 1024
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", value, sizeUnits[unit])
}
