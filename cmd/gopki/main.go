// Command gopki creates certificates and resolves certificate chains
// against configured trust pools.
package main

import (
	"os"

	"github.com/georgepadayatti/gopki/cli"
)

func main() {
	cli.Run(os.Args)
}
