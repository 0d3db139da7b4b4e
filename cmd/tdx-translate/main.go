package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"tdxtools/internal/formula"
)

func main() {
	var (
		inPath  = flag.String("in", "", "path to a TDX formula file (required)")
		outPath = flag.String("o", "", "write generated Go source to this path instead of printing the translation")
		pkg     = flag.String("pkg", "strategies", "package name for generated Go source")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tdx-translate -in <formula.txt> [-o <out.go>] [-pkg <name>]\n\n")
		fmt.Fprintf(os.Stderr, "Parses a TDX formula and prints its translated expressions, or\n")
		fmt.Fprintf(os.Stderr, "generates a Go strategy source file with -o.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *inPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	src, err := os.ReadFile(*inPath)
	if err != nil {
		log.Fatalf("reading formula: %v", err)
	}

	f := formula.Parse(string(src))
	for _, d := range f.Diagnostics {
		fmt.Fprintf(os.Stderr, "warning: unrecognised statement %q: %s\n", d.Stmt, d.Msg)
	}

	if *outPath != "" {
		gen := formula.NewGenerator(formula.NewTranslator(formula.DefaultTable()))
		code, err := gen.GenerateSource(f, *pkg)
		if err != nil {
			log.Fatalf("generating source: %v", err)
		}
		if err := os.WriteFile(*outPath, code, 0o644); err != nil {
			log.Fatalf("writing %s: %v", *outPath, err)
		}
		fmt.Printf("wrote %s\n", *outPath)
		return
	}

	tr := formula.NewTranslator(formula.DefaultTable())
	fmt.Printf("name: %s\n", f.Name)
	if f.Description != "" {
		fmt.Printf("description: %s\n", f.Description)
	}
	for _, p := range f.Params {
		fmt.Printf("param: %s = %s\n", p.Name, p.Raw)
	}
	for _, v := range f.Variables {
		out, err := tr.Translate(v.Expr)
		if err != nil {
			log.Fatalf("translating %s: %v", v.Name, err)
		}
		fmt.Printf("%s := %s\n", v.Name, out)
	}
	for _, c := range f.Conditions {
		out, err := tr.Translate(c.Expr)
		if err != nil {
			log.Fatalf("translating %s condition: %v", c.Kind, err)
		}
		fmt.Printf("%s: %s\n", c.Kind, out)
	}
}
