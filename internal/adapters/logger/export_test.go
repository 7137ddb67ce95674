package logger

// Exported for white-box tests.
var (
	ErrorChain  = errorChain
	FormatChain = formatChain
)
