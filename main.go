package main

import "github.com/RyanBlaney/doppler-analysis/cmd"

func main() {
	cmd.Execute()
}
