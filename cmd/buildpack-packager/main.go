package main

import "github.com/oshokin/buildpack-packager/cmd/buildpack-packager/cmd"

func main() {
	cmd.Execute()
}
