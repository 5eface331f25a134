// Package main is the entry point for the confchan CLI and daemon.
package main

func main() {
	Execute()
}
