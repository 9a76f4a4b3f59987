// internal/runner/input.go
package runner

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ResolveRepository determines the repository reference from the available
// sources. Priority: arg > filePath > stdinReader. From a file or stdin the
// first non-blank line that is not a # comment is used.
// stdinReader may be nil if stdin is a TTY (no pipe).
func ResolveRepository(arg, filePath string, stdinReader io.Reader) (string, error) {
	if text := strings.TrimSpace(arg); text != "" {
		return text, nil
	}

	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return "", fmt.Errorf("reading repository file: %w", err)
		}
		defer f.Close()
		ref, err := firstReference(f)
		if err != nil {
			return "", fmt.Errorf("reading repository file: %w", err)
		}
		if ref == "" {
			return "", fmt.Errorf("repository file is empty: %s", filePath)
		}
		return ref, nil
	}

	if stdinReader != nil {
		ref, err := firstReference(stdinReader)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		if ref != "" {
			return ref, nil
		}
	}

	return "", fmt.Errorf("no repository provided: pass it as an argument, use --file, or pipe to stdin")
}

func firstReference(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			return line, nil
		}
	}
	return "", sc.Err()
}
