package main

import "archloom/loom/cmd"

func main() {
	cmd.Execute()
}
