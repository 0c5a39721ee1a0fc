package main

import "github.com/Zachkp/zach-portfolio/internal/cli"

func main() {
	cli.Execute()
}
