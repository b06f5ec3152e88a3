package main

import "TradeChart/internal/cli"

func main() {
	cli.Execute()
}
