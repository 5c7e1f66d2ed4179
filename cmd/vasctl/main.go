package main

import "github.com/wms-platform/vas-service/internal/cli"

func main() {
	cli.Execute()
}
