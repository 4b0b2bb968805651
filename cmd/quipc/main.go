// quipc compresses and decompresses FASTQ files.
package main

import (
	"bufio"
	"compress/gzip"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/PINGPengyao/quipcore/internal/container"
	"github.com/PINGPengyao/quipcore/internal/fastq"
	"github.com/PINGPengyao/quipcore/internal/refset"
)

var version = "dev"

const (
	exitSuccess = 0
	exitError   = 1
)

type config struct {
	decompress bool
	inputFile  string
	outputFile string
	toStdout   bool
	refPath    string
	assemblyN  uint64
	workers    int
	verbose    bool
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, done := parseFlags()
	if done {
		return exitSuccess
	}

	if cfg.workers > 0 {
		runtime.GOMAXPROCS(cfg.workers)
	}

	input, cleanup, err := openInput(cfg.inputFile, cfg.decompress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}
	defer cleanup()

	output, cleanup, err := openOutput(cfg.outputFile, cfg.toStdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}
	defer cleanup()

	if err := execute(cfg, input, output); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitError
	}

	return exitSuccess
}

func parseFlags() (config, bool) {
	var cfg config
	var showVersion, showHelp bool

	flag.BoolVar(&cfg.decompress, "d", false, "decompress mode")
	flag.StringVar(&cfg.inputFile, "i", "", "input file (default: stdin)")
	flag.StringVar(&cfg.outputFile, "o", "", "output file (default: stdout)")
	flag.BoolVar(&cfg.toStdout, "c", false, "write to stdout (compress mode)")
	flag.StringVar(&cfg.refPath, "ref", "", "reference FASTA for reference-based compression")
	flag.Uint64Var(&cfg.assemblyN, "assembly", 0, "assembly parameter N for assembly-based compression (a nonzero value sets the assembly-based flag)")
	flag.IntVar(&cfg.workers, "w", 0, "GOMAXPROCS override (default: runtime default)")
	flag.BoolVar(&cfg.verbose, "v", false, "print per-run statistics to stderr")
	flag.BoolVar(&showVersion, "version", false, "show version and exit")
	flag.BoolVar(&showHelp, "h", false, "show help")

	flag.Usage = usage
	flag.Parse()

	if showHelp {
		flag.Usage()
		return cfg, true
	}
	if showVersion {
		fmt.Printf("quipc version %s\n", version)
		return cfg, true
	}

	args := flag.Args()
	if len(args) > 0 && cfg.inputFile == "" {
		cfg.inputFile = args[0]
	}
	if len(args) > 1 && cfg.outputFile == "" {
		cfg.outputFile = args[1]
	}

	return cfg, false
}

func usage() {
	fmt.Fprintf(os.Stderr, `quipc - FASTQ read compression tool

Usage:
  quipc [options] [-i input.fq] [-o output.quip]    Compress FASTQ
  quipc -d [-i input.quip] [-o output.fq]           Decompress

Options:
`)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  quipc -i sample.fq -o sample.quip              Compress file
  quipc -i sample.fastq.gz -o sample.quip         Compress gzip input
  quipc -ref genome.fa -i sample.fq -o s.quip    Reference-based compression
  quipc -d -i sample.quip -o sample.fq           Decompress file
  cat sample.fq | quipc -c > sample.quip          Compress from stdin
  quipc -d < sample.quip > sample.fq              Decompress to stdout
`)
}

func openInput(path string, decompress bool) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		if decompress {
			return os.Stdin, func() {}, nil
		}
		return wrapInputMaybeGzip(path, os.Stdin, func() {})
	}

	f, err := os.Open(path) //nolint:gosec // CLI tool needs to open user-specified files
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open input: %w", err)
	}
	cleanup := func() { _ = f.Close() }
	if decompress {
		return f, cleanup, nil
	}
	return wrapInputMaybeGzip(path, f, cleanup)
}

func wrapInputMaybeGzip(path string, in io.Reader, closeInput func()) (io.Reader, func(), error) {
	br := bufio.NewReaderSize(in, 1<<20)
	hasGzipMagic, err := inputHasGzipMagic(br)
	if err != nil {
		closeInput()
		return nil, nil, fmt.Errorf("cannot inspect input: %w", err)
	}

	if strings.HasSuffix(strings.ToLower(path), ".gz") || hasGzipMagic {
		gz, err := gzip.NewReader(br)
		if err != nil {
			closeInput()
			return nil, nil, fmt.Errorf("cannot open gzip input: %w", err)
		}
		return gz, func() {
			_ = gz.Close()
			closeInput()
		}, nil
	}

	return br, closeInput, nil
}

func inputHasGzipMagic(br *bufio.Reader) (bool, error) {
	header, err := br.Peek(2)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return len(header) == 2 && header[0] == 0x1f && header[1] == 0x8b, nil
}

func openOutput(path string, toStdout bool) (io.Writer, func(), error) {
	if path == "" || path == "-" || toStdout {
		bw := bufio.NewWriterSize(os.Stdout, 1<<20)
		return bw, func() { _ = bw.Flush() }, nil
	}

	f, err := os.Create(path) //nolint:gosec // CLI tool needs to create user-specified files
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create output: %w", err)
	}
	bw := bufio.NewWriterSize(f, 1<<20)
	return bw, func() { _ = bw.Flush(); _ = f.Close() }, nil
}

func loadReference(path string) (*refset.Set, error) {
	if path == "" {
		return nil, nil
	}
	ref := refset.New()
	if err := ref.LoadFasta(path); err != nil {
		return nil, fmt.Errorf("loading reference: %w", err)
	}
	return ref, nil
}

func execute(cfg config, input io.Reader, output io.Writer) error {
	ref, err := loadReference(cfg.refPath)
	if err != nil {
		return err
	}

	if cfg.decompress {
		return decompress(input, output, ref, cfg.verbose)
	}
	return compress(input, output, ref, cfg)
}

func compress(input io.Reader, output io.Writer, ref *refset.Set, cfg config) error {
	opts := container.Options{
		Reference: ref,
		Assembled: cfg.assemblyN > 0,
		AssemblyN: cfg.assemblyN,
	}
	cw, err := container.NewWriter(output, opts)
	if err != nil {
		return fmt.Errorf("opening container: %w", err)
	}

	fr := fastq.NewReader(input)
	for {
		r, err := fr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("parsing FASTQ: %w", err)
		}
		if err := cw.Add(r); err != nil {
			return fmt.Errorf("adding read: %w", err)
		}
	}

	if err := cw.Close(); err != nil {
		return fmt.Errorf("closing container: %w", err)
	}

	if cfg.verbose {
		fmt.Fprintf(os.Stderr, "quipc: wrote %d reads, %d bases\n", cw.TotalReads(), cw.TotalBases())
	}
	return nil
}

func decompress(input io.Reader, output io.Writer, ref *refset.Set, verbose bool) error {
	opts := container.Options{Reference: ref}
	cr, err := container.NewReader(input, opts)
	if err != nil {
		return fmt.Errorf("opening container: %w", err)
	}

	fw := fastq.NewWriter(output)
	var n uint64
	for {
		r, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("decoding read: %w", err)
		}
		if err := fw.Write(r); err != nil {
			return fmt.Errorf("writing FASTQ: %w", err)
		}
		n++
	}

	if verbose {
		for _, w := range cr.Warnings() {
			fmt.Fprintf(os.Stderr, "quipc: warning: %s\n", w)
		}
		fmt.Fprintf(os.Stderr, "quipc: read %d reads\n", n)
	}
	return nil
}
