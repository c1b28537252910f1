package main

import "github.com/frahmantamala/clinical-records/cmd"

func main() {
	cmd.Execute()
}
