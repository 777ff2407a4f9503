package capture

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const maxResolutionBytes = 10000

// AddManual stores a resolution typed in by the user.
func AddManual(ctx context.Context, kb Adder, id, summary, resolution string) error {
	id, summary, resolution = strings.TrimSpace(id), strings.TrimSpace(summary), strings.TrimSpace(resolution)
	switch {
	case id == "":
		return fmt.Errorf("item id cannot be empty")
	case summary == "":
		return fmt.Errorf("summary cannot be empty")
	case resolution == "":
		return fmt.Errorf("resolution cannot be empty")
	}
	return kb.AddResolution(ctx, id, summary, resolution)
}

// ReadResolutionFile loads resolution text from a file, truncated to a size
// that still fits a prompt.
func ReadResolutionFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return truncate(string(data), maxResolutionBytes), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
