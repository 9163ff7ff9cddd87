package usage

import "fmt"

// Placeholder is shown instead of a reading when sampling failed.
const Placeholder = "***"

// Format renders a reading for the CPU label.
func Format(percent float64, err error) string {
	if err != nil {
		return Placeholder
	}
	return fmt.Sprintf("%4.1f%%", percent)
}
