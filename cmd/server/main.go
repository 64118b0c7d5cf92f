package main

import "github.com/jengzang/taskrank-backend-go/internal/cli"

func main() {
	cli.Execute()
}
