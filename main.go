package main

import "workfocus/cmd"

func main() {
	cmd.Execute()
}
