package errcode

// Caller-facing reason codes. Messages built from these never include
// storage paths or internal diagnostics.
const (
	Unauthorized  = "unauthorized"
	Forbidden     = "forbidden"
	NotFound      = "not_found"
	Invalid       = "invalid"
	Conflict      = "conflict"
	TooMany       = "too_many_requests"
	Internal      = "internal"
	Expired       = "share_expired"
	Deactivated   = "share_deactivated"
	Exhausted     = "share_exhausted"
	WrongPassword = "wrong_password"
	EmailMismatch = "email_mismatch"
	PageNotFound  = "page_not_found"
	StorageFailed = "storage_failed"
)
