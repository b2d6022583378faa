// Command partikv-cli is a command-line client for a partitioned,
// replicated key-value store.
package main

import "github.com/distkv-io/partikv/cmd"

func main() {
	cmd.Execute()
}
