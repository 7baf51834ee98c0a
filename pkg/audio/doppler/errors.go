package doppler

import "errors"

// Sentinel errors, usable with errors.Is on any *DopplerError
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrDegenerateSignal = errors.New("degenerate signal")
	ErrEmptySignal      = errors.New("empty signal")
	ErrInsufficientData = errors.New("insufficient data")
	ErrSignalTooLong    = errors.New("signal too long")
)

// Error codes reported at the HTTP boundary
const (
	ErrCodeInvalidParameter = "INVALID_PARAMETER"
	ErrCodeDegenerateSignal = "DEGENERATE_SIGNAL"
	ErrCodeEmptySignal      = "EMPTY_SIGNAL"
	ErrCodeInsufficientData = "INSUFFICIENT_DATA"
	ErrCodeSignalTooLong    = "SIGNAL_TOO_LONG"
)

var sentinels = map[string]error{
	ErrCodeInvalidParameter: ErrInvalidParameter,
	ErrCodeDegenerateSignal: ErrDegenerateSignal,
	ErrCodeEmptySignal:      ErrEmptySignal,
	ErrCodeInsufficientData: ErrInsufficientData,
	ErrCodeSignalTooLong:    ErrSignalTooLong,
}

// DopplerError represents a failure of the synthesizer or the estimator
type DopplerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *DopplerError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *DopplerError) Unwrap() error {
	return e.Cause
}

// newError builds a DopplerError whose cause is the sentinel for code
func newError(code, message string) *DopplerError {
	return &DopplerError{
		Code:    code,
		Message: message,
		Cause:   sentinels[code],
	}
}

// CodeOf returns the error code carried by err, or "" when err is not a DopplerError
func CodeOf(err error) string {
	var de *DopplerError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
