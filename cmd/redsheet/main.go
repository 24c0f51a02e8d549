package main

import "github.com/clearmind/redsheet/cmd/redsheet/cmd"

func main() {
	cmd.Execute()
}
