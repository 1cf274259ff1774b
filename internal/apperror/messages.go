package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Solver-bus protocol errors
	CodeBusTransportError: "Solver bus transport request failed",
	CodeBusRPCError:       "Solver bus rejected the request",
	CodeMalformedResponse: "Solver bus response violates the protocol contract",
	CodeInvalidAmountSpec: "Exactly one of amount_in or amount_out must be set",
	CodeNegotiationFailed: "Quote negotiation failed",
	CodePublishFailed:     "Failed to publish intent",
	CodeIntentSignFailed:  "Failed to sign intent payload",

	// Event subscription errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketReconnecting:    "WebSocket reconnecting",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",
	CodeSubscribeFailed:          "Failed to subscribe to solver bus topics",
	CodeSubscriptionClosed:       "Event subscription has been torn down",
	CodeListenerConflict:         "A listener is already registered for this key",

	// Order monitoring errors
	CodeOrderNotFound:      "Limit order not found",
	CodeOrderStateConflict: "Order state changed concurrently",
	CodeOrderExpired:       "Limit order expired before triggering",
	CodeOracleUnavailable:  "Price oracle is unavailable",
	CodeExecutorFailed:     "Order executor reported a failure",
	CodeExecutionStuck:     "Order stuck in executing state past grace period",

	// Circuit breaker errors
	CodeCircuitOpen: "Circuit breaker is open",
}
