package wiki

import (
	"errors"
	"fmt"
)

// ErrResolutionInFlight is returned when a structure resolution is
// requested while another one is still running.
var ErrResolutionInFlight = errors.New("wiki structure resolution already in progress")

// ErrRunSuperseded is returned when a run was abandoned by a newer reset.
var ErrRunSuperseded = errors.New("wiki run superseded by a newer run")

// ValidationError reports missing or malformed repository identity.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// TransportError reports a non-success status from the generation endpoint.
type TransportError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("error generating content: %d - %s: %s", e.StatusCode, e.Status, e.Body)
}

// StreamError reports a response body that could not be opened or read.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("error processing response stream: %v", e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// NoStructureFoundError reports a structure response without a
// <wiki_structure> block.
type NoStructureFoundError struct {
	// Excerpt is the start of the response, for diagnostics.
	Excerpt string
}

func (e *NoStructureFoundError) Error() string {
	return "no valid XML found in response"
}

// MalformedStructureError reports a <wiki_structure> block that failed to parse.
type MalformedStructureError struct {
	Err error
}

func (e *MalformedStructureError) Error() string {
	return fmt.Sprintf("failed to parse XML response: %v", e.Err)
}

func (e *MalformedStructureError) Unwrap() error { return e.Err }

// RunError is a structure-level failure that aborted the whole run.
type RunError struct {
	Err error
}

// repoFormatHint is appended to run-level errors shown to the user.
const repoFormatHint = "Please check that the repository exists and is public, or provide an access token. " +
	"Valid formats: owner/repo, https://github.com/owner/repo, https://gitlab.com/owner/repo, " +
	"https://bitbucket.org/owner/repo, or a local directory path."

func (e *RunError) Error() string {
	return e.Err.Error() + ". " + repoFormatHint
}

func (e *RunError) Unwrap() error { return e.Err }
