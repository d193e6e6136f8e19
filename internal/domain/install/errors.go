// Package install acquires plugins from archives, remote URLs, git
// repositories, and the package index, and keeps the lockfile in step.
package install

import (
	"errors"
	"fmt"
)

// GitCloneError indicates a git operation failed.
type GitCloneError struct {
	URL    string
	Reason string
}

func (e *GitCloneError) Error() string {
	return fmt.Sprintf("git clone failed for %s: %s", e.URL, e.Reason)
}

// GitNotFoundError indicates the git binary is not available.
type GitNotFoundError struct{}

func (e *GitNotFoundError) Error() string {
	return "git is not installed or not in PATH"
}

// IsGitNotFound returns true if the error indicates a missing git binary.
func IsGitNotFound(err error) bool {
	var gitErr *GitNotFoundError
	return errors.As(err, &gitErr)
}

// ArchiveShapeError indicates an archive does not contain exactly one
// top-level folder.
type ArchiveShapeError struct {
	Archive string
	Folders []string
}

func (e *ArchiveShapeError) Error() string {
	return fmt.Sprintf("archive %s must contain exactly one top-level folder, found %d",
		e.Archive, len(e.Folders))
}

// IsArchiveShape returns true if the error is a rejected archive layout.
func IsArchiveShape(err error) bool {
	var shapeErr *ArchiveShapeError
	return errors.As(err, &shapeErr)
}

// PathTraversalError indicates an archive entry tried to escape the
// extraction directory.
type PathTraversalError struct {
	Entry string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("archive entry %q escapes the extraction directory", e.Entry)
}

// IsPathTraversal returns true if the error is a rejected archive entry path.
func IsPathTraversal(err error) bool {
	var travErr *PathTraversalError
	return errors.As(err, &travErr)
}

// IndexCommandError indicates the package index executable failed.
type IndexCommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *IndexCommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("index command %q failed: %s", e.Command, e.Stderr)
	}
	return fmt.Sprintf("index command %q failed: %v", e.Command, e.Err)
}

func (e *IndexCommandError) Unwrap() error {
	return e.Err
}

// IsIndexCommand returns true if the error came from the index executable.
func IsIndexCommand(err error) bool {
	var idxErr *IndexCommandError
	return errors.As(err, &idxErr)
}

// NotInstalledError indicates the installer could not discover the plugin
// after acquisition; nothing was registered or locked.
type NotInstalledError struct {
	Source string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("no plugin found after installing from %s", e.Source)
}

// IsNotInstalled returns true if acquisition yielded no discoverable plugin.
func IsNotInstalled(err error) bool {
	var niErr *NotInstalledError
	return errors.As(err, &niErr)
}
