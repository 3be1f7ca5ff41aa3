// mkschema derives the validation schema for a survey form and prints
// it to stdout. The server performs the same derivation on demand; this
// tool exists for inspecting deployed surveys and validating fixtures.
//
// Usage: mkschema form.html css-selector
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/mbolis/sparta-forms/log"
	"github.com/mbolis/sparta-forms/schema"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage: mkschema form.html css-selector")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	document, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal("mkschema.read:", err)
	}

	derived, err := schema.Derive(document, flag.Arg(1))
	if err != nil {
		log.Fatal("mkschema.derive:", err)
	}

	out, err := json.MarshalIndent(derived, "", "  ")
	if err != nil {
		log.Fatal("mkschema.marshal:", err)
	}
	fmt.Println(string(out))
}
