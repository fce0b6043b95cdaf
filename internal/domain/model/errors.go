package model

import "errors"

// Domain errors surfaced by the scan and check engines. All are
// per-call and recoverable; none leaves prior state modified.
var (
	// ErrNoActiveSession means the scan referenced a session that does
	// not exist or has been completed. The caller must create or
	// resume a session and retry.
	ErrNoActiveSession = errors.New("no active scan session")

	// ErrUnrecognizedBarcode means no requirement in the job matches
	// the scanned barcode. Recoverable; scanning continues.
	ErrUnrecognizedBarcode = errors.New("barcode not found in job")

	// ErrAlreadyFulfilled means every matching requirement job-wide is
	// already at its required quantity. Surfaced to the worker as a
	// blocking extra-item overlay.
	ErrAlreadyFulfilled = errors.New("all requirements for barcode already fulfilled")

	// ErrSessionConflict means another active CheckCount session
	// already holds the box. The caller must wait for it to finish or
	// cancel it.
	ErrSessionConflict = errors.New("another check session is active for this box")

	// ErrBoxEmpty means a CheckCount start targeted a box with zero
	// expected items.
	ErrBoxEmpty = errors.New("box has no expected items to verify")

	// ErrJobNotFound means the referenced job is unknown.
	ErrJobNotFound = errors.New("job not found")

	// ErrCheckSessionNotFound means the referenced check session does
	// not exist or is no longer active.
	ErrCheckSessionNotFound = errors.New("check session not found or not active")

	// ErrWorkerLimit means the job already has the maximum number of
	// concurrently assigned workers.
	ErrWorkerLimit = errors.New("worker limit reached for job")

	// ErrBoxOutOfRange means a box number outside 1..MaxBoxes was
	// referenced.
	ErrBoxOutOfRange = errors.New("box number out of range for job")
)
