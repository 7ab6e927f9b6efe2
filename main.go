package main

import "github.com/cdmschema/cdmschema/cmd"

func main() {
	cmd.Execute()
}
