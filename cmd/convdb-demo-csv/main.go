package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Ambuj00/conversational-db/internal/demo/csvgen"
)

func main() {
	rows := flag.Int("rows", 100, "number of data rows to generate")
	seed := flag.Int64("seed", 1, "random seed (same seed, same file)")
	out := flag.String("out", "-", "output path, or - for stdout")
	flag.Parse()

	if *rows < 0 {
		_, _ = fmt.Fprintln(os.Stderr, "rows must be >= 0")
		os.Exit(2)
	}

	writer := os.Stdout
	if *out != "-" {
		file, err := os.Create(*out)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "create output: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = file.Close() }()
		writer = file
	}

	if err := csvgen.NewGenerator(*seed).WriteCSV(writer, *rows); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "generate csv: %v\n", err)
		os.Exit(1)
	}
}
