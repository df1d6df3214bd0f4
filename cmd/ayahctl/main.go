package main

import "github.com/youruser/ayahapp/internal/cli"

func main() {
	cli.Execute()
}
