package main

import "github.com/deploymenttheory/go-blockfs/cmd"

func main() {
	cmd.Execute()
}
