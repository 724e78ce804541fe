package main

import "github.com/markdave123-py/researchhub/internal/cli"

func main() {
	cli.Execute()
}
