// Package version holds the release version reported by the CLI and sent as
// part of the upstream User-Agent.
package version

// Current is the semantic version without a leading "v".
const Current = "0.3.0"
