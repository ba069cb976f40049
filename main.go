package main

import (
	"github.com/snowfork/snowbridge/beefy-client/cmd"
)

func main() {
	cmd.Execute()
}
