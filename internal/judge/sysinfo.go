package judge

import (
	"fmt"
	"os"
	"runtime"
)

// SystemInfo describes the machine judging submissions.
func SystemInfo(runtimeName string) string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s %s/%s, %d cpus, %s, sandbox %s",
		host, runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.Version(), runtimeName)
}
