package gateway

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amaranthustech/jcal/astronomy/ephemeris"
	"github.com/amaranthustech/jcal/lunisolar"
)

// APIError represents a structured API error response.
type APIError struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails contains detailed error information.
type ErrorDetails struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"requestId"`
	Timestamp string                 `json:"timestamp"`
	Path      string                 `json:"path"`
}

// convertCoreError maps a core error kind to an HTTP status and API error,
// mirroring the donor's gRPC-code-to-HTTP translation but against this
// package's own error taxonomy.
func convertCoreError(err error, requestID, path string) (int, *APIError) {
	code, message, status := classifyCoreError(err)

	return status, &APIError{
		Error: ErrorDetails{
			Code:      code,
			Message:   message,
			RequestID: requestID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Path:      path,
		},
	}
}

func classifyCoreError(err error) (code, message string, status int) {
	switch e := err.(type) {
	case *lunisolar.InvalidInputRangeError:
		return "INVALID_RANGE", e.Error(), http.StatusBadRequest
	case *lunisolar.OutOfCachedRangeError:
		return "OUT_OF_RANGE", e.Error(), http.StatusUnprocessableEntity
	case *lunisolar.SolsticeNotBracketedError:
		return "SOLSTICE_NOT_BRACKETED", e.Error(), http.StatusInternalServerError
	case *lunisolar.InconsistentLeapDecisionError:
		return "INCONSISTENT_LEAP_DECISION", e.Error(), http.StatusInternalServerError
	case *ephemeris.EphemerisOutOfRangeError:
		return "EPHEMERIS_OUT_OF_RANGE", e.Error(), http.StatusUnprocessableEntity
	default:
		if strings.Contains(err.Error(), "naive") {
			return "NAIVE_DATETIME", err.Error(), http.StatusBadRequest
		}
		return "INTERNAL_ERROR", "an internal server error occurred", http.StatusInternalServerError
	}
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = generateRequestID()
	}

	errorResp := APIError{
		Error: ErrorDetails{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: requestID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Path:      r.URL.Path,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", requestID)
	w.WriteHeader(status)
	writeJSON(w, errorResp)
}

func writeCoreError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = generateRequestID()
	}

	status, apiError := convertCoreError(err, requestID, r.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", requestID)
	w.WriteHeader(status)

	logger.Error("API error",
		"http_status", status,
		"error_code", apiError.Error.Code,
		"message", apiError.Error.Message,
		"request_id", requestID,
		"path", r.URL.Path,
		"method", r.Method,
	)

	writeJSON(w, apiError)
}

func generateRequestID() string {
	return fmt.Sprintf("req_%d", time.Now().UnixNano())
}
