package main

import (
	"mediashelf/cmd"
)

func main() {
	cmd.Execute()
}
