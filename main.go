package main

import "github.com/fiberloom/fiberloom/cmd"

func main() {
	cmd.Execute()
}
