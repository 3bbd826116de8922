package main

import "github.com/shenikar/fireguard_dispatch/cmd/dispatchctl/cmd"

func main() {
	cmd.Execute()
}
