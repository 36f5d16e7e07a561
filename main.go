package main

import "github.com/ZpokenWeb3/gnark-fri-verifier/cmd"

func main() {
	cmd.Execute()
}
