package main

import "github.com/agentward/agentward/internal/cli"

func main() {
	cli.Execute()
}
