package main

import "github.com/resonance-audio/resonance/internal/cli"

func main() {
	cli.Execute()
}
