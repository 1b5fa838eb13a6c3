package main

import "github.com/haggleworks/negotiator/cmd"

func main() {
	cmd.Execute()
}
