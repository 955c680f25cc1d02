package interfaces

// -----------------------------------------------------------------------------
// IDiagnostics is the channel refresh failures are reported on.
// -----------------------------------------------------------------------------

type IDiagnostics interface {
	Error(format string, args ...interface{})
}
