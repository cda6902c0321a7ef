package main

import "github.com/AzielCF/az-juris/cmd"

func main() {
	cmd.Execute()
}
