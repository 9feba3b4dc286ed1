// Package main is the entry point for the droidsql CLI.
// It queries SQLite databases inside Android apps over adb.
package main

import (
	"droidsql/cli/cmd"
)

func main() {
	cmd.Execute()
}
