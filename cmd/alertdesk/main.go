package main

import "strategy-alerts/internal/cli"

func main() {
	cli.Execute()
}
