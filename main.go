package main

import (
	"github.com/axellelanca/magiccode/cmd"
	_ "github.com/axellelanca/magiccode/cmd/cli"
	_ "github.com/axellelanca/magiccode/cmd/server"
)

func main() {
	cmd.Execute()
}
