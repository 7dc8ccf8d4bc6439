package main

import "github.com/sectorwars/aria-core/internal/adapters/cli"

func main() {
	cli.Execute()
}
