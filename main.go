package main

import "github.com/denysvitali/minify-runner/cmd"

func main() {
	cmd.Execute()
}
