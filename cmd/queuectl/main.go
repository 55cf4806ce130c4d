// Command queuectl is the CLI entrypoint for the job queue engine.
package main

import (
	"context"

	"github.com/cvakhilesh7/queuectl/cmd/cli"
)

func main() {
	cli.ExecuteContext(context.Background())
}
