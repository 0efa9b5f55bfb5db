package main

import "github.com/theirongolddev/billcheck/cmd"

func main() {
	cmd.Execute()
}
