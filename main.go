package main

import "Playa/cmd"

func main() {
	cmd.Execute()
}
