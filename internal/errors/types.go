package errors

import "errors"

var (
	ErrPreconditionUnmet = errors.New("installation precondition unmet")
	ErrQueryFailed       = errors.New("runtime query failed")
	ErrBootstrapFailed   = errors.New("service bootstrap failed")
	ErrInstallFailed     = errors.New("payload installation failed")
	ErrConfigInvalid     = errors.New("configuration invalid")
	ErrFileSystemFailed  = errors.New("filesystem operation failed")
	ErrSourceFailed      = errors.New("payload source fetch failed")
)

type DenError struct {
	Type        error
	Context     string
	Cause       string
	Suggestion  string
	OriginalErr error
}

func (e *DenError) Error() string {
	return e.OriginalErr.Error()
}

func (e *DenError) Unwrap() error {
	return e.OriginalErr
}

// Is lets errors.Is match a DenError against its sentinel type.
func (e *DenError) Is(target error) bool {
	return e.Type == target
}

func NewDenError(errorType error, context, cause, suggestion string, originalErr error) *DenError {
	if originalErr == nil {
		originalErr = errorType
	}
	return &DenError{
		Type:        errorType,
		Context:     context,
		Cause:       cause,
		Suggestion:  suggestion,
		OriginalErr: originalErr,
	}
}

func NewPreconditionError(context, cause, suggestion string, originalErr error) *DenError {
	return NewDenError(ErrPreconditionUnmet, context, cause, suggestion, originalErr)
}

func NewQueryError(context, cause, suggestion string, originalErr error) *DenError {
	return NewDenError(ErrQueryFailed, context, cause, suggestion, originalErr)
}

func NewBootstrapError(context, cause, suggestion string, originalErr error) *DenError {
	return NewDenError(ErrBootstrapFailed, context, cause, suggestion, originalErr)
}

func NewInstallError(context, cause, suggestion string, originalErr error) *DenError {
	return NewDenError(ErrInstallFailed, context, cause, suggestion, originalErr)
}

func NewConfigError(context, cause, suggestion string, originalErr error) *DenError {
	return NewDenError(ErrConfigInvalid, context, cause, suggestion, originalErr)
}

func NewFileSystemError(context, cause, suggestion string, originalErr error) *DenError {
	return NewDenError(ErrFileSystemFailed, context, cause, suggestion, originalErr)
}

func NewSourceError(context, cause, suggestion string, originalErr error) *DenError {
	return NewDenError(ErrSourceFailed, context, cause, suggestion, originalErr)
}
