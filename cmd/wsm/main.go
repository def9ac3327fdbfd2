package main

import (
	"fmt"
	"os"
)

func main() {
	if err := executeCLI(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("wsm - coordinate commits, pushes, and pull requests across a virtual workspace")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  wsm init")
	fmt.Println("  wsm status")
	fmt.Println("  wsm commit \"<message>\" [--actor NAME] [--dry-run]")
	fmt.Println("  wsm push")
	fmt.Println("  wsm pull")
	fmt.Println("  wsm checkout <branch>")
	fmt.Println("  wsm branch <branch>")
	fmt.Println("  wsm pr \"<title>\" [--description TEXT] [--actor NAME] [--dry-run]")
	fmt.Println("  wsm watch [--task TASK] [--settings PATH] [--interval 30]")
	fmt.Println("  wsm approve [--task TASK] [--settings PATH]")
	fmt.Println("  wsm policy-init [--path .wsm/policy.json]")
	fmt.Println("  wsm help")
}
