package main

import "github.com/sunhome243/nexus-cli-sub000/cmd"

func main() {
	cmd.Execute()
}
