package main

// Exit codes.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing collection, invalid YAML, missing API key)
	ExitDataError   = 3 // Data error (malformed TSV, incoherent record)
	ExitLocked      = 4 // Another run holds the single-writer lock
	ExitNotFound    = 5 // Requested citation or verdict not found
	ExitCurated     = 6 // Refused to overwrite a curated record without --force
)
