package runner

import "fmt"

// ExitError is returned when a command should exit with a non-zero code.
// Using a typed error instead of os.Exit ensures deferred cleanup runs.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCodeFromPages returns 1 when page failures meet the failOn policy,
// 0 otherwise. failOn is "any" (at least one failed page), "all" (every
// page failed) or empty/"none" to disable gating. Unknown values disable
// gating too.
func ExitCodeFromPages(failed, total int, failOn string) int {
	switch failOn {
	case "any":
		if failed > 0 {
			return 1
		}
	case "all":
		if total > 0 && failed == total {
			return 1
		}
	}
	return 0
}
