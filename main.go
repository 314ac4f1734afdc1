package main

import "monochrome/cmd"

func main() {
	cmd.Execute()
}
