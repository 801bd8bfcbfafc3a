// Command onboard is the terminal client for employee onboarding.
package main

import "onboard/internal/cli"

func main() {
	cli.Execute()
}
