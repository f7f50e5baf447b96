//nolint
package version

import "fmt"

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	Version string
)

const NodeVersion = "0.1.0"

func init() {
	Version = fmt.Sprintf("DJI Coin Release: %s;", NodeVersion)
	if GitCommit != "" {
		Version += fmt.Sprintf(" DJI Coin Commit: %s;", GitCommit)
	}
}
