// Package i18n provides internationalization support for the sortline service.
package i18n

// Error message translation keys.
const (
	// ErrKeyInvalidRequest indicates an invalid request.
	ErrKeyInvalidRequest = "error.invalid_request"
	// ErrKeyInvalidRequestBody indicates an invalid request body.
	ErrKeyInvalidRequestBody = "error.invalid_request_body"
	// ErrKeyInternalError indicates an internal server error.
	ErrKeyInternalError = "error.internal_error"
	// ErrKeyUnauthorized indicates missing or invalid authentication.
	ErrKeyUnauthorized = "error.unauthorized"
	// ErrKeyAPIKeyRequired indicates that an API key is required.
	ErrKeyAPIKeyRequired = "error.api_key_required"
	// ErrKeyInvalidAPIKey indicates an invalid API key.
	ErrKeyInvalidAPIKey = "error.invalid_api_key"
	// ErrKeyForbidden indicates insufficient permissions.
	ErrKeyForbidden = "error.forbidden"
	// ErrKeyNotFound indicates a resource was not found.
	ErrKeyNotFound = "error.not_found"
	// ErrKeyRateLimitExceeded indicates rate limit exceeded.
	ErrKeyRateLimitExceeded = "error.rate_limit_exceeded"
	// ErrKeyConflict indicates a conflict with current state.
	ErrKeyConflict = "error.conflict"
	// ErrKeyTimeout indicates a request timeout.
	ErrKeyTimeout = "error.timeout"

	// ErrKeyNoActiveSession indicates the scan referenced no open session.
	ErrKeyNoActiveSession = "error.no_active_session"
	// ErrKeyUnknownBarcode indicates a barcode matching nothing in the job.
	ErrKeyUnknownBarcode = "error.unknown_barcode"
	// ErrKeyExtraItem indicates a barcode already fulfilled job-wide.
	ErrKeyExtraItem = "error.extra_item"
	// ErrKeyCheckConflict indicates another check session holds the box.
	ErrKeyCheckConflict = "error.check_conflict"
	// ErrKeyBoxEmpty indicates a check start on a box with no expected items.
	ErrKeyBoxEmpty = "error.box_empty"
	// ErrKeyJobNotFound indicates an unknown job.
	ErrKeyJobNotFound = "error.job_not_found"
	// ErrKeyCheckNotFound indicates an unknown or closed check session.
	ErrKeyCheckNotFound = "error.check_not_found"
	// ErrKeyWorkerLimit indicates the job's worker cap was reached.
	ErrKeyWorkerLimit = "error.worker_limit"
	// ErrKeyBoxOutOfRange indicates a box number outside the job's range.
	ErrKeyBoxOutOfRange = "error.box_out_of_range"
)

// Success message translation keys.
const (
	// SuccessKeyScanRecorded indicates a scan was reconciled into a box.
	SuccessKeyScanRecorded = "success.scan_recorded"
	// SuccessKeyItemPutAside indicates a scan was parked in the queue.
	SuccessKeyItemPutAside = "success.item_put_aside"
)
