package main

import "github.com/andresmejia3/mixres/cmd"

func main() {
	cmd.Execute()
}
