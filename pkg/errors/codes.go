package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeDatabaseError      ErrorCode = "COMMON_008"
	ErrCodeCacheError         ErrorCode = "COMMON_009"
	ErrCodeMessageQueueError  ErrorCode = "COMMON_010"
	ErrCodeStorageError       ErrorCode = "COMMON_011"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_012"
	ErrCodeNotImplemented     ErrorCode = "COMMON_013"
)

// Sentinel codes used by chain-inspection helpers.
const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")
)

// Dataset module error codes
const (
	ErrCodeDatasetNotFound      ErrorCode = "DS_001"
	ErrCodeDatasetUnreadable    ErrorCode = "DS_002"
	ErrCodeDatasetEmpty         ErrorCode = "DS_003"
	ErrCodeDatasetParseFailed   ErrorCode = "DS_004"
	ErrCodeDatasetWriteFailed   ErrorCode = "DS_005"
	ErrCodeColumnNotFound       ErrorCode = "DS_006"
	ErrCodeDelimiterUndetected  ErrorCode = "DS_007"
)

// Profiling module error codes
const (
	ErrCodeProfileFailed       ErrorCode = "PRF_001"
	ErrCodeProfileNonNumeric   ErrorCode = "PRF_002"
)

// Deduplication module error codes
const (
	ErrCodeDedupFailed           ErrorCode = "DDP_001"
	ErrCodeDedupMetricInvalid    ErrorCode = "DDP_002"
	ErrCodeDedupThresholdInvalid ErrorCode = "DDP_003"
	ErrCodeDedupNoKeyColumns     ErrorCode = "DDP_004"
)

// Cleaning module error codes
const (
	ErrCodeCleaningStrategyInvalid ErrorCode = "CLN_001"
	ErrCodeCleaningNonNumeric      ErrorCode = "CLN_002"
)

// Mapping module error codes
const (
	ErrCodeMappingFileInvalid   ErrorCode = "MAP_001"
	ErrCodeMappingFieldMissing  ErrorCode = "MAP_002"
	ErrCodeMappingEmpty         ErrorCode = "MAP_003"
)

// Migration module error codes
const (
	ErrCodeRunNotFound          ErrorCode = "MIG_001"
	ErrCodeRunAlreadyFinished   ErrorCode = "MIG_002"
	ErrCodeMigrationFailed      ErrorCode = "MIG_003"
	ErrCodeDuplicateModeInvalid ErrorCode = "MIG_004"
	ErrCodeStatsInconsistent    ErrorCode = "MIG_005"
	ErrCodeTargetUnreadable     ErrorCode = "MIG_006"
)

// Reporting module error codes
const (
	ErrCodeReportNotFound         ErrorCode = "RPT_001"
	ErrCodeReportRenderFailed     ErrorCode = "RPT_002"
	ErrCodeReportFormatUnsupported ErrorCode = "RPT_003"
)

// Workflow module error codes
const (
	ErrCodeIntentUnrecognized ErrorCode = "WF_001"
	ErrCodeToolNotFound       ErrorCode = "WF_002"
	ErrCodeAgentNotFound      ErrorCode = "WF_003"
	ErrCodePipelineFailed     ErrorCode = "WF_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessageQueueError:  http.StatusInternalServerError,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeDatasetNotFound:     http.StatusNotFound,
	ErrCodeDatasetUnreadable:   http.StatusBadRequest,
	ErrCodeDatasetEmpty:        http.StatusUnprocessableEntity,
	ErrCodeDatasetParseFailed:  http.StatusBadRequest,
	ErrCodeDatasetWriteFailed:  http.StatusInternalServerError,
	ErrCodeColumnNotFound:      http.StatusBadRequest,
	ErrCodeDelimiterUndetected: http.StatusBadRequest,

	ErrCodeProfileFailed:     http.StatusInternalServerError,
	ErrCodeProfileNonNumeric: http.StatusBadRequest,

	ErrCodeDedupFailed:           http.StatusInternalServerError,
	ErrCodeDedupMetricInvalid:    http.StatusBadRequest,
	ErrCodeDedupThresholdInvalid: http.StatusBadRequest,
	ErrCodeDedupNoKeyColumns:     http.StatusBadRequest,

	ErrCodeCleaningStrategyInvalid: http.StatusBadRequest,
	ErrCodeCleaningNonNumeric:      http.StatusBadRequest,

	ErrCodeMappingFileInvalid:  http.StatusBadRequest,
	ErrCodeMappingFieldMissing: http.StatusBadRequest,
	ErrCodeMappingEmpty:        http.StatusUnprocessableEntity,

	ErrCodeRunNotFound:          http.StatusNotFound,
	ErrCodeRunAlreadyFinished:   http.StatusConflict,
	ErrCodeMigrationFailed:      http.StatusInternalServerError,
	ErrCodeDuplicateModeInvalid: http.StatusBadRequest,
	ErrCodeStatsInconsistent:    http.StatusInternalServerError,
	ErrCodeTargetUnreadable:     http.StatusBadRequest,

	ErrCodeReportNotFound:          http.StatusNotFound,
	ErrCodeReportRenderFailed:      http.StatusInternalServerError,
	ErrCodeReportFormatUnsupported: http.StatusBadRequest,

	ErrCodeIntentUnrecognized: http.StatusUnprocessableEntity,
	ErrCodeToolNotFound:       http.StatusNotFound,
	ErrCodeAgentNotFound:      http.StatusNotFound,
	ErrCodePipelineFailed:     http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeMessageQueueError:  "message queue error",
	ErrCodeStorageError:       "object storage error",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeDatasetNotFound:     "dataset not found",
	ErrCodeDatasetUnreadable:   "dataset file could not be read",
	ErrCodeDatasetEmpty:        "dataset contains no data rows",
	ErrCodeDatasetParseFailed:  "failed to parse CSV data",
	ErrCodeDatasetWriteFailed:  "failed to write CSV output",
	ErrCodeColumnNotFound:      "column not found in dataset",
	ErrCodeDelimiterUndetected: "could not detect CSV delimiter",

	ErrCodeProfileFailed:     "data profiling failed",
	ErrCodeProfileNonNumeric: "statistic requires a numeric column",

	ErrCodeDedupFailed:           "duplicate detection failed",
	ErrCodeDedupMetricInvalid:    "invalid similarity metric",
	ErrCodeDedupThresholdInvalid: "invalid similarity threshold",
	ErrCodeDedupNoKeyColumns:     "no key columns available for matching",

	ErrCodeCleaningStrategyInvalid: "invalid missing-value strategy",
	ErrCodeCleaningNonNumeric:      "strategy requires a numeric column",

	ErrCodeMappingFileInvalid:  "mapping file is invalid",
	ErrCodeMappingFieldMissing: "mapped field not present in source",
	ErrCodeMappingEmpty:        "mapping contains no entries",

	ErrCodeRunNotFound:          "migration run not found",
	ErrCodeRunAlreadyFinished:   "migration run already finished",
	ErrCodeMigrationFailed:      "migration failed",
	ErrCodeDuplicateModeInvalid: "invalid duplicate handling mode",
	ErrCodeStatsInconsistent:    "migration statistics are inconsistent",
	ErrCodeTargetUnreadable:     "target file could not be read",

	ErrCodeReportNotFound:          "report not found",
	ErrCodeReportRenderFailed:      "failed to render report",
	ErrCodeReportFormatUnsupported: "unsupported report format",

	ErrCodeIntentUnrecognized: "could not determine intent from message",
	ErrCodeToolNotFound:       "tool not found",
	ErrCodeAgentNotFound:      "agent not found",
	ErrCodePipelineFailed:     "pipeline execution failed",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
