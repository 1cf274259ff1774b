package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Solver-bus protocol error codes
const (
	// Transport-level failure: non-2xx response or connection failure.
	// Retryable by caller policy, never retried automatically.
	CodeBusTransportError Code = "SOLVER_BUS_TRANSPORT_ERROR"

	// Protocol-level rejection carried in the JSON-RPC error envelope.
	CodeBusRPCError Code = "SOLVER_BUS_RPC_ERROR"

	// The peer answered 2xx but the payload violates the protocol contract.
	CodeMalformedResponse Code = "SOLVER_BUS_MALFORMED_RESPONSE"

	// Quote negotiation
	CodeInvalidAmountSpec Code = "INVALID_AMOUNT_SPECIFICATION"
	CodeNegotiationFailed Code = "NEGOTIATION_FAILED"

	// Intent publishing
	CodePublishFailed    Code = "INTENT_PUBLISH_FAILED"
	CodeIntentSignFailed Code = "INTENT_SIGN_FAILED"
)

// Event subscription error codes
const (
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketReconnecting    Code = "WEBSOCKET_RECONNECTING"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	CodeSubscribeFailed    Code = "SUBSCRIBE_FAILED"
	CodeSubscriptionClosed Code = "SUBSCRIPTION_CLOSED"
	CodeListenerConflict   Code = "LISTENER_CONFLICT"
)

// Order monitoring error codes
const (
	CodeOrderNotFound      Code = "ORDER_NOT_FOUND"
	CodeOrderStateConflict Code = "ORDER_STATE_CONFLICT"
	CodeOrderExpired       Code = "ORDER_EXPIRED"
	CodeOracleUnavailable  Code = "ORACLE_UNAVAILABLE"
	CodeExecutorFailed     Code = "EXECUTOR_FAILED"
	CodeExecutionStuck     Code = "EXECUTION_STUCK"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
