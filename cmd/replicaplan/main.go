// Command replicaplan plans representative subsets of infrastructure
// graphs from the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
