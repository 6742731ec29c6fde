package main

import "github.com/nmhoang2304/AniTrack-Group07/cli"

func main() {
	cli.Execute()
}
