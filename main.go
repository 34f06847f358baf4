package main

import (
	"github.com/PolarWolf314/agekeeper/cmd"
)

func main() {
	cmd.Execute()
}
