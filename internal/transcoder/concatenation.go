package transcoder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// createConcatFile creates a text file listing all inputs for the concat demuxer
func createConcatFile(inputs []string) (string, error) {
	tempFile, err := os.CreateTemp("", "concat_*.txt")
	if err != nil {
		return "", err
	}
	defer tempFile.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			os.Remove(tempFile.Name())
			return "", fmt.Errorf("failed to resolve %s: %w", input, err)
		}

		if _, err := fmt.Fprintf(tempFile, "file '%s'\n", escapeConcatPath(absPath)); err != nil {
			os.Remove(tempFile.Name())
			return "", err
		}
	}

	return tempFile.Name(), nil
}

// escapeConcatPath quotes a path for a concat list entry
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
