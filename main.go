package main

import "claudeweb/cmd"

// Set by release ldflags.
var version = "dev"

func main() {
	cmd.Execute(version)
}
