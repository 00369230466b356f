package main

import "github.com/fakeyudi/moodwatch/cmd"

func main() {
	cmd.Execute()
}
