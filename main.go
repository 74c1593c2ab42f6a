package main

import (
	"vibecast/cmd"
)

func main() {
	cmd.Execute()
}
