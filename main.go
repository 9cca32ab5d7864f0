package main

import "projtrack/cli"

func main() {
	cli.Execute()
}
