package main

import "github.com/fcojaviergon/rocket-launch-genai-sub001/cmd"

func main() {
	cmd.Execute()
}
