package main

import "github.com/papapumpkin/depcheck/cmd"

func main() {
	cmd.Execute()
}
