// Command financeos is the terminal client for the forecast engine. It
// works against the local SQLite store.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
