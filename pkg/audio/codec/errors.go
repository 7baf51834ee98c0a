package codec

// CodecError represents audio decoding and encoding errors
type CodecError struct {
	Format  string `json:"format"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *CodecError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidFormat = "INVALID_FORMAT"
	ErrCodeDecoding      = "DECODING_FAILED"
	ErrCodeEncoding      = "ENCODING_FAILED"
	ErrCodeUnsupported   = "UNSUPPORTED_FORMAT"
	ErrCodeTooLong       = "AUDIO_TOO_LONG"
)

// NewCodecError creates a new codec error
func NewCodecError(format, code, message string, cause error) *CodecError {
	return &CodecError{
		Format:  format,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
