// vault serves custodial vesting vaults over a json api and operates on them offline.
package main

import (
	"fmt"
	"os"

	"github.com/spacemeshos/go-vault/cmd"
	"github.com/spacemeshos/go-vault/node"
)

var version string

func main() { // run the app
	if version != "" {
		cmd.Version = version
	}
	if err := node.GetCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
