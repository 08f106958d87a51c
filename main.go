package main

import "github.com/relloyd/silverpipe/cmd"

func main() {
	cmd.Execute()
}
