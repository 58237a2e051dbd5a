package main

import "github.com/oshokin/relcut/cmd/relcut-index/cmd"

func main() {
	cmd.Execute()
}
