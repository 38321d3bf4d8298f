package main

import "github.com/AngelCh415/agentic-analyst/internal/cli"

func main() {
	cli.Execute()
}
