package main

import "github.com/nextlevelbuilder/opencompany/cmd"

func main() {
	cmd.Execute()
}
