package main

import "github.com/Manu343726/disfuzz/cmd"

func main() {
	cmd.Execute()
}
