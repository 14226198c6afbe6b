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

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_015"
)

// Short aliases used at call sites throughout the codebase.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")

	CodeDBConnectionError = ErrCodeDatabaseError
	CodeDatabaseError     = ErrCodeDatabaseError
	CodeDBQueryError      = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeMessageQueueError = ErrCodeExternalService

	CodeDocumentNotFound = ErrCodeDocumentNotFound
	CodeHeuristicsLoad   = ErrCodeHeuristicsFileInvalid
	CodeTierFailed       = ErrCodeTierFailed
	CodeBudgetExceeded   = ErrCodeBudgetExceeded
)

// Document Module Error Codes
const (
	ErrCodeDocumentNotFound     ErrorCode = "DOC_001"
	ErrCodeDocumentHashMismatch ErrorCode = "DOC_002"
	ErrCodeChunkNotFound        ErrorCode = "DOC_003"
	ErrCodeChunkSequenceInvalid ErrorCode = "DOC_004"
	ErrCodeDocumentTextEmpty    ErrorCode = "DOC_005"
)

// Heuristics / Reference Data Error Codes
const (
	ErrCodeHeuristicsFileMissing ErrorCode = "HEU_001"
	ErrCodeHeuristicsFileInvalid ErrorCode = "HEU_002"
	ErrCodeHeuristicsNotLoaded   ErrorCode = "HEU_003"
	ErrCodeHeuristicsVersion     ErrorCode = "HEU_004"
)

// Extraction Module Error Codes
const (
	ErrCodeTierFailed          ErrorCode = "EXT_001"
	ErrCodeTierUnknown         ErrorCode = "EXT_002"
	ErrCodeTaggerUnavailable   ErrorCode = "EXT_003"
	ErrCodeEmbeddingIndexDown  ErrorCode = "EXT_004"
	ErrCodeLLMSchemaInvalid    ErrorCode = "EXT_005"
	ErrCodeLLMTimeout          ErrorCode = "EXT_006"
	ErrCodeBudgetExceeded      ErrorCode = "EXT_007"
	ErrCodeNormalizationFailed ErrorCode = "EXT_008"
	ErrCodeSpanOutOfRange      ErrorCode = "EXT_009"
)

// Fusion / Relationship Error Codes
const (
	ErrCodeFusionEmptyGroup      ErrorCode = "FUS_001"
	ErrCodeRelationCrossDocument ErrorCode = "FUS_002"
	ErrCodeRelationEntityMissing ErrorCode = "FUS_003"
)

// Persistence Gateway Error Codes
const (
	ErrCodeUpsertFailed       ErrorCode = "STO_001"
	ErrCodeCheckpointNotFound ErrorCode = "STO_002"
	ErrCodeMigrationFailed    ErrorCode = "STO_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeDocumentNotFound:     http.StatusNotFound,
	ErrCodeDocumentHashMismatch: http.StatusConflict,
	ErrCodeChunkNotFound:        http.StatusNotFound,
	ErrCodeChunkSequenceInvalid: http.StatusBadRequest,
	ErrCodeDocumentTextEmpty:    http.StatusBadRequest,

	ErrCodeHeuristicsFileMissing: http.StatusInternalServerError,
	ErrCodeHeuristicsFileInvalid: http.StatusInternalServerError,
	ErrCodeHeuristicsNotLoaded:   http.StatusServiceUnavailable,
	ErrCodeHeuristicsVersion:     http.StatusInternalServerError,

	ErrCodeTierFailed:          http.StatusInternalServerError,
	ErrCodeTierUnknown:         http.StatusBadRequest,
	ErrCodeTaggerUnavailable:   http.StatusServiceUnavailable,
	ErrCodeEmbeddingIndexDown:  http.StatusServiceUnavailable,
	ErrCodeLLMSchemaInvalid:    http.StatusBadGateway,
	ErrCodeLLMTimeout:          http.StatusGatewayTimeout,
	ErrCodeBudgetExceeded:      http.StatusTooManyRequests,
	ErrCodeNormalizationFailed: http.StatusUnprocessableEntity,
	ErrCodeSpanOutOfRange:      http.StatusBadRequest,

	ErrCodeFusionEmptyGroup:      http.StatusInternalServerError,
	ErrCodeRelationCrossDocument: http.StatusBadRequest,
	ErrCodeRelationEntityMissing: http.StatusNotFound,

	ErrCodeUpsertFailed:       http.StatusInternalServerError,
	ErrCodeCheckpointNotFound: http.StatusNotFound,
	ErrCodeMigrationFailed:    http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeDocumentNotFound:     "document not found",
	ErrCodeDocumentHashMismatch: "document content hash mismatch",
	ErrCodeChunkNotFound:        "chunk not found",
	ErrCodeChunkSequenceInvalid: "invalid chunk sequence number",
	ErrCodeDocumentTextEmpty:    "document text is empty",

	ErrCodeHeuristicsFileMissing: "required heuristics file missing",
	ErrCodeHeuristicsFileInvalid: "heuristics file is malformed",
	ErrCodeHeuristicsNotLoaded:   "heuristics store not loaded",
	ErrCodeHeuristicsVersion:     "heuristics version unreadable",

	ErrCodeTierFailed:          "extraction tier failed",
	ErrCodeTierUnknown:         "unknown extraction tier",
	ErrCodeTaggerUnavailable:   "statistical tagger unavailable",
	ErrCodeEmbeddingIndexDown:  "embedding reference index unavailable",
	ErrCodeLLMSchemaInvalid:    "LLM response failed schema validation",
	ErrCodeLLMTimeout:          "LLM request timed out",
	ErrCodeBudgetExceeded:      "LLM fallback budget exceeded",
	ErrCodeNormalizationFailed: "value normalization failed",
	ErrCodeSpanOutOfRange:      "span offsets out of chunk range",

	ErrCodeFusionEmptyGroup:      "fusion group is empty",
	ErrCodeRelationCrossDocument: "relationship endpoints belong to different documents",
	ErrCodeRelationEntityMissing: "relationship endpoint entity not found",

	ErrCodeUpsertFailed:       "upsert failed",
	ErrCodeCheckpointNotFound: "pipeline checkpoint not found",
	ErrCodeMigrationFailed:    "schema migration failed",
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
