// Command distill turns website text into structured facts: ingest
// documents into a local SQLite corpus, then extract schema-validated
// facts with a local or hosted LLM.
package main

import (
	"fmt"
	"os"

	"github.com/hurttlocker/distill/internal/config"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	case "facts":
		err = runFacts(os.Args[2:])
	case "eval":
		err = runEval(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "mcp":
		err = runMCP(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("distill %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags holds flags shared by every subcommand.
type commonFlags struct {
	config config.Options
	rest   []string
}

// parseCommon peels off the flags every subcommand accepts and returns
// the remainder for the command to interpret.
func parseCommon(args []string) (commonFlags, error) {
	var cf commonFlags
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--config" && i+1 < len(args):
			i++
			cf.config.ConfigPath = args[i]
		case args[i] == "--db" && i+1 < len(args):
			i++
			cf.config.DBPath = args[i]
		case args[i] == "--embed" && i+1 < len(args):
			i++
			cf.config.Embed = args[i]
		case args[i] == "--llm" && i+1 < len(args):
			i++
			cf.config.LLM = args[i]
		default:
			cf.rest = append(cf.rest, args[i])
		}
	}
	return cf, nil
}

func printUsage() {
	fmt.Printf(`distill %s - structured fact extraction from website text

Usage:
  distill <command> [arguments]

Commands:
  ingest <path>            Ingest a file or directory into the corpus
  extract <scope>          Extract facts for a domain or document
  search <fact-type>       Show ranked chunks for a fact type
  facts <scope>            Show the latest stored facts for a scope
  eval <samples.json>      Score stored facts against labeled samples
  stats <domain>           Show corpus statistics for a domain
  mcp                      Run the MCP server on stdio
  version                  Print version

Common Flags:
  --config <path>          Config file (default ~/.distill/config.yaml)
  --db <path>              Database path (default ~/.distill/distill.db)
  --embed <provider/model> Embedding backend (e.g. ollama/nomic-embed-text)
  --llm <provider/model>   Extraction backend (e.g. ollama/llama3.1)

Flags:
  -h, --help               Show this help message
  -v, --version            Print version
`, version)
}
