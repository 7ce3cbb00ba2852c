package main

import "github.com/mselser95/ordersync/cmd"

func main() {
	cmd.Execute()
}
