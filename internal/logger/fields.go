package logger

// Standard field keys for structured logging.
const (
	KeyTraceID     = "trace_id"
	KeyRequestID   = "request_id"
	KeyOperationID = "operation_id"
	KeyClientIP    = "client_ip"

	KeyHost     = "host"
	KeyShare    = "share"
	KeyPath     = "path"
	KeyFolder   = "folder"
	KeyFilename = "filename"
	KeyUsername = "username"
	KeyDomain   = "domain"

	KeyStep         = "step"
	KeyBytesWritten = "bytes_written"
	KeyDurationMs   = "duration_ms"
	KeyError        = "error"
)
