package main

import "github.com/bryanchriswhite/PunchCam/cmd/punchcam/commands"

func main() {
	commands.Execute()
}
