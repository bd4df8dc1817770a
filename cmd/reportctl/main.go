// Command reportctl migrates the report database and renders reports
// from local files.
package main

import "github.com/frostdev-ops/eventstats-backend-go/internal/cli"

func main() {
	cli.Execute()
}
