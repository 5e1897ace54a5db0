package main

import "github.com/KaramelBytes/casewrangle-cli/cmd"

func main() {
	cmd.Execute()
}
