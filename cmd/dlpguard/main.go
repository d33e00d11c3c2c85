// dlpguard ingests security-violation events, decides an enforcement
// action, and dispatches at most one notification per logical incident.
package main

import "github.com/rizkypratama/dlpguard/internal/cli"

func main() {
	cli.Execute()
}
