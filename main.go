package main

import "inventory-monitor/cmd"

func main() {
	cmd.Execute()
}
