package storymap

import "fmt"

// VersionConflictError reports an optimistic-concurrency rejection. The caller
// must reload the document at CurrentVersion before retrying; the engine never
// merges concurrent edits.
type VersionConflictError struct {
	DocumentID       string
	SubmittedVersion int
	CurrentVersion   int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on document %s: submitted version %d, current version %d",
		e.DocumentID, e.SubmittedVersion, e.CurrentVersion)
}

// IsVersionConflict checks if an error is a VersionConflictError.
func IsVersionConflict(err error) bool {
	_, ok := err.(*VersionConflictError)
	return ok
}

// Admit decides whether a write may proceed against the stored document.
//
// A nil callerVersion is an unconditional, last-writer-wins write; callers are
// expected to restrict that path to trusted system corrections. Otherwise the
// caller's version must equal the stored version exactly.
//
// Admit is an optimistic pre-check only: two requests can both pass it before
// either commits. The store's conditional update on the old version is the
// arbiter of the real race, and Admit's accepted version is what that update
// must be conditioned on.
func Admit(doc *GraphDocument, callerVersion *int) (next int, err error) {
	if callerVersion != nil && *callerVersion != doc.Version {
		return 0, &VersionConflictError{
			DocumentID:       doc.DocumentID,
			SubmittedVersion: *callerVersion,
			CurrentVersion:   doc.Version,
		}
	}
	return doc.Version + 1, nil
}
