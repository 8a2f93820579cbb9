package main

import "github.com/actionsum/focuslens/internal/cli"

func main() {
	cli.Execute()
}
