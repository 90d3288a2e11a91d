// CLI entry point for datamigrate.
package main

import (
	"github.com/turtacn/datamigrate/internal/interfaces/cli"
)

func main() {
	cli.Execute()
}
