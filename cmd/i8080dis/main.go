// Package main implements i8080dis, an Intel 8080 disassembler.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"goinvaders/internal/disasm"
	"goinvaders/internal/version"
)

func main() {
	var (
		origin      = flag.String("origin", "0", "Load address of the first byte (hex with 0x or $ prefix, or decimal)")
		output      = flag.String("o", "", "Write the listing to a file instead of stdout")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: i8080dis [options] <rom>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Describe("i8080dis"))
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	start, err := parseAddress(*origin)
	if err != nil {
		log.Fatalf("Invalid origin: %v", err)
	}

	code, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Could not open %q: %v", flag.Arg(0), err)
	}

	out := os.Stdout
	if *output != "" {
		out, err = os.Create(*output)
		if err != nil {
			log.Fatalf("Could not create %q: %v", *output, err)
		}
		defer out.Close()
	}

	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "; %s: %d bytes\n", flag.Arg(0), len(code))
	if err := disasm.Listing(w, code, start); err != nil {
		log.Fatalf("Listing failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("Write failed: %v", err)
	}
}

// parseAddress accepts 0x1A00, $1A00 or a decimal number
func parseAddress(s string) (uint16, error) {
	if len(s) > 0 && s[0] == '$' {
		s = "0x" + s[1:]
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
