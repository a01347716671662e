package main

import "orderdash/cmd"

func main() {
	cmd.Execute()
}
