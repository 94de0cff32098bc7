package main

import "appointment-monitor/commands"

func main() {
	commands.Execute()
}
