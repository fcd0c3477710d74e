package main

import (
	"fmt"
	"os"

	"MemberSync/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "membersync:", err)
		os.Exit(1)
	}
}
