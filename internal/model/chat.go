package model

type ResponseKind string

const (
	ResponseKindNone                  = ResponseKind("")
	ResponseKindQuotaExceeded         = ResponseKind("quota_exceeded")
	ResponseKindBusy                  = ResponseKind("busy")
	ResponseKindInvalidMessage        = ResponseKind("invalid_message")
	ResponseKindMissingCredential     = ResponseKind("missing_credential")
	ResponseKindRateLimited           = ResponseKind("rate_limited")
	ResponseKindProviderQuotaExceeded = ResponseKind("provider_quota_exceeded")
	ResponseKindEmptyResponse         = ResponseKind("empty_response")
	ResponseKindUnknown               = ResponseKind("unknown")
	ResponseKindInternal              = ResponseKind("internal")
)

// ChatResponse is the outcome of one SendMessage call. Reply is set on
// success, Error and Kind on failure.
type ChatResponse struct {
	Success bool
	Reply   string
	Error   string
	Kind    ResponseKind
}
