package main

import "github.com/vietddude/retryfetch/internal/cli"

func main() {
	cli.Execute()
}
