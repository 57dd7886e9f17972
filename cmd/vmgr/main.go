package main

import "vmgr/internal/cli"

func main() {
	cli.Execute()
}
