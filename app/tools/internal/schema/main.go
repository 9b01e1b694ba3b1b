// Command schema writes agent tool definitions to a json file, tools.json by default
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/umputun/jobtrack/app/scraper"
	"github.com/umputun/jobtrack/app/tools"
)

func main() {
	// definitions don't call services, nil jobs service is fine here
	reg := tools.NewRegistry()
	scr := scraper.New(scraper.Params{Fetcher: &scraper.HTTPFetcher{}})
	if err := tools.RegisterJobTools(reg, nil, scr); err != nil {
		log.Fatalf("failed to register tools: %v", err)
	}

	data, err := json.MarshalIndent(reg.Definitions(), "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal definitions: %v", err)
	}

	outputPath := "tools.json"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}
	if err := os.WriteFile(outputPath, data, 0o600); err != nil { //nolint:gosec // definitions are not sensitive
		log.Fatalf("failed to write definitions file: %v", err)
	}
	fmt.Printf("Tool definitions generated successfully at %s\n", outputPath)
}
