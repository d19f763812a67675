package main

import "github.com/atikulmunna/reel/internal/cmd"

func main() {
	cmd.Execute()
}
