package main

import "github.com/magicbot/magicbot/cmd/magicbot/cmd"

func main() {
	cmd.Execute()
}
