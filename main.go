package main

import "github.com/audiolibrelab/pulsepipe/cmd"

func main() {
	cmd.Execute()
}
