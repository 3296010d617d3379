package main

import "github.com/quorumcall/mesh-signaling/internal/cli"

func main() {
	cli.Execute()
}
