// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command asm85 cross-assembles an 8085 source file into a flat 64 KiB
// binary image.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/8085dev/go8085/asm"
)

func main() {
	outFlag := flag.String("o", "", "output binary file (default: input file with .bin extension)")
	originFlag := flag.Uint("origin", 0, "starting address of the assembled image")
	verboseFlag := flag.Bool("v", false, "print an assembly listing to stdout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: asm85 <in.asm> [-o <out.bin>]")
		os.Exit(1)
	}

	inFile := flag.Arg(0)
	outFile := *outFlag
	if outFile == "" {
		ext := filepath.Ext(inFile)
		outFile = inFile[:len(inFile)-len(ext)] + ".bin"
	}

	os.Exit(run(inFile, outFile, uint16(*originFlag), *verboseFlag))
}

func run(inFile, outFile string, origin uint16, verbose bool) int {
	src, err := os.Open(inFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer src.Close()

	var opts asm.Option
	if verbose {
		opts |= asm.Verbose
	}

	result, _, err := asm.Assemble(src, inFile, origin, os.Stdout, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	dst, err := os.OpenFile(outFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer dst.Close()

	if _, err := dst.Write(result.Image.Bytes()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	return 0
}
