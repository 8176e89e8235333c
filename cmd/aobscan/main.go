//go:build linux

// Command aobscan searches a live process for a byte pattern and dumps
// the memory around each match.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/alinkof1/supertux-trainer/hexdump"
	"github.com/alinkof1/supertux-trainer/memory"
	"github.com/alinkof1/supertux-trainer/provider"
	"github.com/alinkof1/supertux-trainer/scanner"
)

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to attach to")
	nameFlag := flag.String("name", "", "Process name to attach to (alternative to -pid)")
	patternFlag := flag.String("pattern", "", "Byte pattern to scan for, e.g. '48 8b ?? 05 12'")
	moduleFlag := flag.String("module", "", "Limit the scan to one module (default: sweep all readable regions)")
	naiveFlag := flag.Bool("naive", false, "Disable the accelerated matcher")
	flag.Parse()

	if *patternFlag == "" {
		fmt.Println("Error: -pattern is required")
		flag.Usage()
		os.Exit(1)
	}
	if *pidFlag == 0 && *nameFlag == "" {
		fmt.Println("Error: one of -pid or -name is required")
		flag.Usage()
		os.Exit(1)
	}

	pat, err := memory.NewPattern(*patternFlag, "aobscan")
	if err != nil {
		fmt.Printf("Error parsing pattern: %v\n", err)
		os.Exit(1)
	}

	proc, err := attach(*pidFlag, *nameFlag)
	if err != nil {
		fmt.Printf("Error attaching: %v\n", err)
		os.Exit(1)
	}
	defer proc.Close()

	fmt.Printf("Attached to process %d\n", proc.PID())
	fmt.Printf("Scanning for pattern: %s\n", pat.String())

	var opts []scanner.Option
	if *naiveFlag {
		opts = append(opts, scanner.WithNaiveScan())
	}
	s := scanner.New(proc, opts...)

	results, err := scan(s, pat, *moduleFlag)
	if err != nil {
		fmt.Printf("Error scanning: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("Pattern not found.")
		return
	}

	fmt.Printf("Found %d match(es):\n", len(results))
	for _, r := range results {
		fmt.Printf("\nMatch at %s:\n", r.Address.ToString())
		dumpContext(proc, r.Address, pat.Size())
	}
}

func attach(pid int, name string) (*provider.LinuxProvider, error) {
	if pid != 0 {
		return provider.OpenPID(pid)
	}
	return provider.OpenName(name)
}

// scan sweeps one module or every readable region.
func scan(s *scanner.Scanner, pat memory.Pattern, module string) ([]memory.PatternResult, error) {
	if module == "" {
		return s.ScanRegions(pat)
	}

	r, err := s.ScanModule(pat, module)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	return []memory.PatternResult{*r}, nil
}

// dumpContext shows 16 bytes before and after the match with the
// matched range highlighted. A failed context read is not fatal.
func dumpContext(proc *provider.LinuxProvider, addr memory.Address, size int) {
	const before = 16
	start := addr.Add(-before)
	length := memory.Size(before + size + 16)

	data, err := proc.ReadMemory(start, length)
	if err != nil {
		fmt.Printf("  (context unreadable: %v)\n", err)
		return
	}

	fmt.Print(hexdump.DumpHighlight(data, uint64(start), before, size))
}
