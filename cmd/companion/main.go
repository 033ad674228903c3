package main

import "github.com/suPer8Hu/kai-companion/internal/cli"

func main() {
	cli.Execute()
}
