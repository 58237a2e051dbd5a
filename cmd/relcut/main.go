package main

import "github.com/oshokin/relcut/cmd/relcut/cmd"

func main() {
	cmd.Execute()
}
