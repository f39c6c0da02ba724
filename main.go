package main

import "github.com/denysvitali/ipos-browser-go/cmd"

func main() {
	cmd.Execute()
}
