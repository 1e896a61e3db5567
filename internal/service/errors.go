package service

// Error codes surfaced to clients as message_error.errorType.
const (
	CodeBlocked        = "BLOCKED"
	CodeRequestPending = "REQUEST_PENDING"
	CodeRequestHandled = "REQUEST_HANDLED"
	CodeNotAuthorized  = "NOT_AUTHORIZED"
	CodeInvalidTarget  = "INVALID_TARGET"
	CodeInvalidPayload = "INVALID_PAYLOAD"
	CodeNotFound       = "NOT_FOUND"
)

// PolicyError is a refused operation. Nothing was changed.
type PolicyError struct {
	Code    string
	Message string
}

func (e *PolicyError) Error() string {
	return e.Message
}

// NotFoundError names a user or request id that does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

var (
	ErrUserNotFound    = &NotFoundError{Resource: "User"}
	ErrRequestNotFound = &NotFoundError{Resource: "Message request"}
)

var (
	ErrBlocked            = &PolicyError{Code: CodeBlocked, Message: "You cannot message this user"}
	ErrRequestPending     = &PolicyError{Code: CodeRequestPending, Message: "This user has sent you a message request. Accept it to reply"}
	ErrRequestHandled     = &PolicyError{Code: CodeRequestHandled, Message: "Message request was already handled"}
	ErrNotRequestReceiver = &PolicyError{Code: CodeNotAuthorized, Message: "Only the receiver can handle this request"}
	ErrCannotMessageSelf  = &PolicyError{Code: CodeInvalidTarget, Message: "You cannot message yourself"}
	ErrCannotBlockSelf    = &PolicyError{Code: CodeInvalidTarget, Message: "You cannot block yourself"}
	ErrEmptyMessage       = &PolicyError{Code: CodeInvalidPayload, Message: "Message must contain text, an image or a video"}
	ErrInvalidAction      = &PolicyError{Code: CodeInvalidPayload, Message: "Action must be accept or reject"}
)
