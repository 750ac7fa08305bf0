package main

import "github.com/theverygaming/meshtastic-bridge/cmd/meshtastic-bridge/cmd"

var version string // set by the compiler

func main() {
	cmd.Execute(version)
}
