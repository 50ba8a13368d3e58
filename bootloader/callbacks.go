package bootloader

// Progress contains information about an upload in flight.
// Passed to ProgressCallback after each acknowledged line.
type Progress struct {
	// CurrentLine is the count of lines sent and acknowledged so far
	CurrentLine int

	// TotalLines is the total number of record lines to send
	TotalLines int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64
}

// ProgressCallback is called after each acknowledged line. Its absence does
// not affect correctness, only observability; implementations should return
// quickly to avoid blocking the transfer.
type ProgressCallback func(Progress)

// Logger is an optional logging interface that can be provided to the
// uploader. This allows integration with any logging framework.
//
// Example with the standard log package:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
