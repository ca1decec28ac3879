// Package version provides version information for the rateoracle application.
package version

// Version is the current version of the rateoracle application.
const Version = "0.3.1"

// AgentString returns the full agent string with versioning.
// Format: @aetherpay/rateoracle@v{version}
func AgentString() string {
	return "@aetherpay/rateoracle@v" + Version
}
