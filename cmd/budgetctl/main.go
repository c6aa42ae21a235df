// Command budgetctl runs maintenance and reporting tasks against the
// budgetwise store without going through the HTTP API.
package main

func main() {
	Execute()
}
