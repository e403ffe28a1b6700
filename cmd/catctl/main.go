// Command catctl is a terminal client for the street-cat report service.
package main

import (
	"fmt"
	"os"

	"github.com/streetcats/report-service/internal/client"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", client.ErrorMessage(err))
		os.Exit(1)
	}
}
