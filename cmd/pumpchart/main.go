// Command pumpchart simulates the infusion pump's alarm and infusion
// manager charts, and the mine pump controller.
package main

import "github.com/comalice/pumpchart/cmd/pumpchart/cmd"

func main() {
	cmd.Execute()
}
