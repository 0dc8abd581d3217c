package main

import "github.com/pfrederiksen/events-today/internal/cli"

func main() {
	cli.Execute()
}
