// Command kaimaku is the command-line client of the kaimaku API.
package main

import "kaimaku/cmd/cli/command"

func main() {
	command.Execute()
}
