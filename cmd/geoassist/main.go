// cmd/geoassist/main.go
package main

import (
	cmd "github.com/mwiater/geoassist/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	setVersionInfo = cmd.SetVersionInfo
	executeCmd     = cmd.Execute
)

// main starts the geoassist CLI by delegating to the cobra root command.
func main() {
	setVersionInfo(version, commit, date)
	executeCmd()
}
