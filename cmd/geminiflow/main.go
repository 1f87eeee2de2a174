package main

import "github.com/tmarquez/geminiflow/internal/commands"

func main() {
	commands.Execute()
}
