// mandate — deterministic policy enforcement for conversational agents.
package main

import "github.com/rkalmar/mandate/internal/cli"

func main() {
	cli.Execute()
}
