package main

import "github.com/theatharvamuley10/phillipCap-rewardToken/cmd"

func main() {
	cmd.Execute()
}
