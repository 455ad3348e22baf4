// Command synqed runs the download engine as an HTTP service and talks to a
// running one from the terminal.
package main

func main() {
	Execute()
}
