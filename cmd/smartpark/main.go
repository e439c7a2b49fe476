package main

import "github.com/chandarr7/SmartParkIntelligence/internal/cli"

func main() {
	cli.Execute()
}
