package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (invalid config file) / Index not found
	ExitDataError   = 3 // Data error (no readable sources, unwritable output)
)
