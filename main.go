package main

import "github.com/gopher-os/acpitables/cmd"

func main() {
	cmd.Execute()
}
