package main

import "postenrich/internal/cli"

func main() {
	cli.Execute()
}
