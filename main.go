package main

import (
	"log"

	"jzonefm/cmd"
)

func main() {
	cmd.Execute()
	log.Println("Application command execution finished or server started.")
}
