// Package main is the entry point for the figmap server and tools.
package main

func main() {
	Execute()
}
