package main

import "github.com/tansive/vaultconsole/internal/cli"

func main() {
	cli.Execute()
}
