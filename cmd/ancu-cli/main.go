// Command ancu-cli assesses BMI from the terminal, one person interactively
// or many from a CSV file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/kartoza/ancu-kesehatan/internal/locale"
)

var version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  ancu-cli [-lang id|en] [-chart out.png]
  ancu-cli batch -in people.csv -out results.csv [-lang id|en]
  ancu-cli version
`)
}

func main() {
	log.SetFlags(0)

	catalog, err := locale.NewCatalog()
	if err != nil {
		log.Fatalf("Failed to load messages: %v", err)
	}

	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "batch":
			if err := runBatchCommand(catalog, args[1:]); err != nil {
				log.Fatalf("Error: %v", err)
			}
			return
		case "version":
			fmt.Printf("ancu-cli v%s\n", version)
			return
		case "help", "-h", "--help":
			usage()
			return
		}
	}

	fs := flag.NewFlagSet("ancu-cli", flag.ExitOnError)
	fs.Usage = usage
	lang := fs.String("lang", envLang(), "Output language (id or en)")
	chartPath := fs.String("chart", "", "Write the BMI zone chart to this PNG file")
	fs.Parse(args)

	if err := runInteractive(catalog.For(*lang), *chartPath); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// envLang turns a POSIX locale such as en_US.UTF-8 into a language tag
func envLang() string {
	v := os.Getenv("LANG")
	if i := strings.IndexAny(v, ".@"); i >= 0 {
		v = v[:i]
	}
	if v == "C" || v == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(v, "_", "-")
}
