package main

import "github.com/omule0/ai-csv-analyst/cmd"

func main() {
	cmd.Execute()
}
