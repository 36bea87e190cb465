// Command minidb runs the MiniDB server, shell and one-shot client.
package main

import (
	"os"

	"minidb/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
