// Command patchboard is the command-line front end for board documents:
// validation, summaries, format conversion, revision history, and a live
// watch session with autosave.
package main

func main() {
	Execute()
}
