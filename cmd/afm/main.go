// Command afm is a CLI client for the on-device foundation model runtime.
package main

import "github.com/peridot-sh/afm/cli"

func main() {
	cli.Execute()
}
