package main

import "vectorsync/cmd"

func main() {
	cmd.Execute()
}
