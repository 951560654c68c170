package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation         = "E100"
	CodeDatabase           = "E200"
	CodeExternalAPI        = "E300"
	CodeCatalogUnavailable = "E310"
	CodeLeadWrite          = "E320"
	CodeState              = "E400"
	CodeRateLimit          = "E500"
)

const defaultUserMessage = "Произошла ошибка. Попробуйте позже"

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: fmt.Sprintf("Неверный формат данных. %s", msg),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func NewDatabaseError(cause error) *AppError {
	return &AppError{
		Code:        CodeDatabase,
		Message:     fmt.Sprintf("Database error: %s", causeMessage(cause)),
		UserMessage: "Временная проблема, попробуйте позже",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        CodeExternalAPI,
		Message:     fmt.Sprintf("External API error: %s: %s", apiName, causeMessage(cause)),
		UserMessage: "Сервис временно недоступен",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewCatalogUnavailableError reports that the course catalog could not be read at startup.
// The bot keeps running with an empty catalog.
func NewCatalogUnavailableError(cause error) *AppError {
	return &AppError{
		Code:        CodeCatalogUnavailable,
		Message:     fmt.Sprintf("Catalog unavailable: %s", causeMessage(cause)),
		UserMessage: "Каталог курсов временно недоступен",
		Severity:    SeverityHigh,
		Retryable:   false,
		cause:       cause,
	}
}

// NewLeadWriteError wraps a failed append to a lead sink. Retryable follows the cause.
func NewLeadWriteError(sink string, cause error) *AppError {
	return &AppError{
		Code:        CodeLeadWrite,
		Message:     fmt.Sprintf("Lead write failed (%s): %s", sink, causeMessage(cause)),
		UserMessage: defaultUserMessage,
		Severity:    SeverityHigh,
		Retryable:   IsRetryable(cause),
		cause:       cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        CodeState,
		Message:     msg,
		UserMessage: "Операция невозможна в текущем состоянии",
		Severity:    SeverityMedium,
		Retryable:   false,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Слишком много запросов. Попробуйте через %d секунд", retryAfter),
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

func causeMessage(cause error) string {
	if cause == nil {
		return ""
	}
	return cause.Error()
}
