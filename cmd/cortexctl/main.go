package main

import "github.com/dyike/cortexctl/internal/cli"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Run(version)
}
