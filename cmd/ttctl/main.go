package main

import "github.com/ashwinyue/traintrack/internal/cli"

func main() {
	cli.Execute()
}
