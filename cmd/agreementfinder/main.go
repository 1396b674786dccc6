package main

import "github.com/fwcsearch/agreement-finder/cmd"

func main() {
	cmd.Execute()
}
