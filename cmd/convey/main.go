package main

import (
	conveycmd "github.com/conveyci/convey/cmd"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	conveycmd.SetVersionInfo(version, commit)
	conveycmd.Execute()
}
