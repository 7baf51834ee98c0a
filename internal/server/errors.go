package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RyanBlaney/doppler-analysis/pkg/audio/codec"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/doppler"
	"github.com/RyanBlaney/doppler-analysis/pkg/logging"
)

var (
	errBusy     = errors.New("too many concurrent jobs, retry later")
	errTooLarge = errors.New("upload exceeds the size limit")
)

// statusFor maps pipeline errors onto HTTP status codes
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	var codecErr *codec.CodecError

	switch {
	case errors.Is(err, errBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, errTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, doppler.ErrInvalidParameter),
		errors.Is(err, doppler.ErrEmptySignal),
		errors.Is(err, doppler.ErrInsufficientData):
		return http.StatusBadRequest
	case errors.Is(err, doppler.ErrSignalTooLong):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, doppler.ErrDegenerateSignal):
		return http.StatusUnprocessableEntity
	case errors.As(err, &codecErr):
		switch codecErr.Code {
		case codec.ErrCodeTooLong:
			return http.StatusRequestEntityTooLarge
		case codec.ErrCodeUnsupported:
			return http.StatusBadRequest
		case codec.ErrCodeEncoding:
			return http.StatusInternalServerError
		}
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// abortWithError writes the {"error": ...} body used by every endpoint
func (s *Server) abortWithError(c *gin.Context, err error, msg string) {
	status := statusFor(err)

	fields := logging.Fields{"status": status}
	if code := doppler.CodeOf(err); code != "" {
		fields["code"] = code
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		requestLogger(c, s.logger).Error(err, msg, fields)
	} else {
		requestLogger(c, s.logger).Warn(msg, fields, logging.Fields{"error": err.Error()})
	}

	c.AbortWithStatusJSON(status, gin.H{"error": msg + ": " + err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
