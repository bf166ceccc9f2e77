package main

import "prospector_backend/internal/cli"

func main() {
	cli.Execute()
}
