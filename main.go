package main

import (
	"hotel-price-watch/internal/cli"
)

func main() {
	cli.Execute()
}
