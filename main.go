package main

import "github.com/rhabibp/stremio-panel/cmd"

func main() {
	cmd.Execute()
}
