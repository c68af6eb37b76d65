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

// Common error codes shared by every module.
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
	CodeUnknown        = ErrorCode("UNKNOWN")
	CodeOK             = ErrorCode("OK")

	CodeDrugNotFound          = ErrCodeDrugNotFound
	CodeMoleculeInvalidSMILES = ErrCodeMoleculeInvalidSMILES
	CodePrescriptionNotFound  = ErrCodePrescriptionNotFound
)

// Molecule module error codes.
const (
	ErrCodeMoleculeInvalidSMILES       ErrorCode = "MOL_001"
	ErrCodeMoleculeParsingFailed       ErrorCode = "MOL_002"
	ErrCodeFingerprintGenerationFailed ErrorCode = "MOL_003"
	ErrCodeFingerprintTypeUnsupported  ErrorCode = "MOL_004"
	ErrCodeSimilaritySearchFailed      ErrorCode = "MOL_005"
	ErrCodeSimilarityThresholdInvalid  ErrorCode = "MOL_006"
	ErrCodeMolBlockGenerationFailed    ErrorCode = "MOL_007"
)

// Drug module error codes.
const (
	ErrCodeDrugNotFound         ErrorCode = "DRUG_001"
	ErrCodeDrugAlreadyExists    ErrorCode = "DRUG_002"
	ErrCodeDrugNameInvalid      ErrorCode = "DRUG_003"
	ErrCodeDrugLookupFailed     ErrorCode = "DRUG_004"
	ErrCodeDrugTargetPrediction ErrorCode = "DRUG_005"
	ErrCodeDrugComparisonFailed ErrorCode = "DRUG_006"
)

// Prescription / OCR module error codes.
const (
	ErrCodePrescriptionNotFound     ErrorCode = "OCR_001"
	ErrCodePrescriptionFileInvalid  ErrorCode = "OCR_002"
	ErrCodePrescriptionUploadFailed ErrorCode = "OCR_003"
	ErrCodeOCRExtractionFailed      ErrorCode = "OCR_004"
	ErrCodeOCRResponseUnparsable    ErrorCode = "OCR_005"
)

// External data-source error codes (ChEMBL, PubChem, DrugCentral, RxNorm,
// Serper, arXiv).
const (
	ErrCodeSourceUnavailable ErrorCode = "EXT_001"
	ErrCodeSourceRateLimited ErrorCode = "EXT_002"
	ErrCodeSourceAuthFailed  ErrorCode = "EXT_003"
	ErrCodeSourceParseError  ErrorCode = "EXT_004"
	ErrCodeSourceNotFound    ErrorCode = "EXT_005"
)

// LLM / vision error codes (Groq, Gemini).
const (
	ErrCodeLLMNotConfigured    ErrorCode = "LLM_001"
	ErrCodeLLMRequestFailed    ErrorCode = "LLM_002"
	ErrCodeLLMResponseInvalid  ErrorCode = "LLM_003"
	ErrCodeVisionRequestFailed ErrorCode = "LLM_004"
)

// Knowledge-graph error codes.
const (
	ErrCodeKGQueryFailed ErrorCode = "KG_001"
	ErrCodeKGDrugUnknown ErrorCode = "KG_002"
)

// ErrorCodeHTTPStatus maps each code to the HTTP status the API layer returns.
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
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeMoleculeInvalidSMILES:       http.StatusBadRequest,
	ErrCodeMoleculeParsingFailed:       http.StatusBadRequest,
	ErrCodeFingerprintGenerationFailed: http.StatusUnprocessableEntity,
	ErrCodeFingerprintTypeUnsupported:  http.StatusBadRequest,
	ErrCodeSimilaritySearchFailed:      http.StatusInternalServerError,
	ErrCodeSimilarityThresholdInvalid:  http.StatusBadRequest,
	ErrCodeMolBlockGenerationFailed:    http.StatusUnprocessableEntity,

	ErrCodeDrugNotFound:         http.StatusNotFound,
	ErrCodeDrugAlreadyExists:    http.StatusConflict,
	ErrCodeDrugNameInvalid:      http.StatusBadRequest,
	ErrCodeDrugLookupFailed:     http.StatusBadGateway,
	ErrCodeDrugTargetPrediction: http.StatusInternalServerError,
	ErrCodeDrugComparisonFailed: http.StatusInternalServerError,

	ErrCodePrescriptionNotFound:     http.StatusNotFound,
	ErrCodePrescriptionFileInvalid:  http.StatusBadRequest,
	ErrCodePrescriptionUploadFailed: http.StatusInternalServerError,
	ErrCodeOCRExtractionFailed:      http.StatusBadGateway,
	ErrCodeOCRResponseUnparsable:    http.StatusBadGateway,

	ErrCodeSourceUnavailable: http.StatusBadGateway,
	ErrCodeSourceRateLimited: http.StatusTooManyRequests,
	ErrCodeSourceAuthFailed:  http.StatusBadGateway,
	ErrCodeSourceParseError:  http.StatusBadGateway,
	ErrCodeSourceNotFound:    http.StatusNotFound,

	ErrCodeLLMNotConfigured:    http.StatusServiceUnavailable,
	ErrCodeLLMRequestFailed:    http.StatusBadGateway,
	ErrCodeLLMResponseInvalid:  http.StatusBadGateway,
	ErrCodeVisionRequestFailed: http.StatusBadGateway,

	ErrCodeKGQueryFailed: http.StatusInternalServerError,
	ErrCodeKGDrugUnknown: http.StatusNotFound,
}

// ErrorCodeMessage holds the default human-readable message per code, used
// when a handler needs a response body but the error carries no message.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timed out",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeMoleculeInvalidSMILES:       "invalid SMILES string",
	ErrCodeMoleculeParsingFailed:       "failed to parse molecule structure",
	ErrCodeFingerprintGenerationFailed: "failed to generate fingerprint",
	ErrCodeFingerprintTypeUnsupported:  "unsupported fingerprint type",
	ErrCodeSimilaritySearchFailed:      "similarity search failed",
	ErrCodeSimilarityThresholdInvalid:  "similarity threshold must be in [0,1]",
	ErrCodeMolBlockGenerationFailed:    "failed to generate MOL block",

	ErrCodeDrugNotFound:         "drug not found",
	ErrCodeDrugAlreadyExists:    "drug already exists",
	ErrCodeDrugNameInvalid:      "invalid drug name",
	ErrCodeDrugLookupFailed:     "external drug lookup failed",
	ErrCodeDrugTargetPrediction: "target prediction failed",
	ErrCodeDrugComparisonFailed: "drug comparison failed",

	ErrCodePrescriptionNotFound:     "prescription not found",
	ErrCodePrescriptionFileInvalid:  "invalid prescription image",
	ErrCodePrescriptionUploadFailed: "failed to store prescription image",
	ErrCodeOCRExtractionFailed:      "OCR extraction failed",
	ErrCodeOCRResponseUnparsable:    "could not parse OCR response",

	ErrCodeSourceUnavailable: "data source unavailable",
	ErrCodeSourceRateLimited: "data source rate limited",
	ErrCodeSourceAuthFailed:  "data source authentication failed",
	ErrCodeSourceParseError:  "failed to parse data source response",
	ErrCodeSourceNotFound:    "not found in data source",

	ErrCodeLLMNotConfigured:    "LLM API key not configured",
	ErrCodeLLMRequestFailed:    "LLM request failed",
	ErrCodeLLMResponseInvalid:  "LLM returned an unusable response",
	ErrCodeVisionRequestFailed: "vision model request failed",

	ErrCodeKGQueryFailed: "knowledge graph query failed",
	ErrCodeKGDrugUnknown: "drug not present in knowledge graph",
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
