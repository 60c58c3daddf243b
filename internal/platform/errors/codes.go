// Package errors provides structured error handling for schema and seed commands.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Schema errors
	CodeSchemaApply  Code = "SCHEMA_APPLY_FAILED"
	CodeSchemaRevert Code = "SCHEMA_REVERT_FAILED"

	// Seed errors
	CodeInsertion      Code = "INSERTION_FAILED"
	CodeFixtureInvalid Code = "FIXTURE_INVALID"

	// Store errors
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// ExitCode maps domain codes to process exit statuses.
func (c Code) ExitCode() int {
	switch c {
	case CodeFixtureInvalid:
		return 2
	case CodeStoreUnavailable:
		return 3
	default:
		return 1
	}
}
