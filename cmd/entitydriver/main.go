// Command entitydriver creates, loads and queries entities from the command line.
package main

import "github.com/mesh-intelligence/entitydriver/internal/cli"

func main() {
	cli.Execute()
}
