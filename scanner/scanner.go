// Package scanner locates byte patterns in a target process's address
// space through an injected memory-access provider, and resolves matches
// into usable addresses via offsets and pointer chains.
package scanner

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/alinkof1/supertux-trainer/memory"
	"github.com/alinkof1/supertux-trainer/provider"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Scanner searches process memory for patterns. Scans are read-only and
// side-effect-free; concurrent scans are safe.
//
// Region reads are all-or-nothing: if any part of a requested range is
// unreadable the scan fails with provider.ErrReadFailure rather than
// silently scanning a readable prefix. Full-process sweeps skip whole
// unreadable regions at the enumeration level instead.
type Scanner struct {
	provider provider.Provider
	log      *logger.Logger
	naive    bool
	maxdop   uint
}

// Option configures a Scanner at construction time.
type Option func(*Scanner)

// WithNaiveScan disables the accelerated Boyer-Moore-Horspool matcher
// and scans every offset.
func WithNaiveScan() Option {
	return func(s *Scanner) {
		s.naive = true
	}
}

// WithMaxParallel bounds the number of goroutines used by ScanMultiple
// and ScanRegions. Zero means one goroutine per CPU.
func WithMaxParallel(n uint) Option {
	return func(s *Scanner) {
		s.maxdop = n
	}
}

// New creates a Scanner bound to a memory-access provider.
func New(p provider.Provider, opts ...Option) *Scanner {
	s := &Scanner{
		provider: p,
		log:      logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "scanner")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// findFirst picks the matching algorithm for one region snapshot.
func (s *Scanner) findFirst(data []byte, pat memory.Pattern) int {
	bytes := pat.Bytes()
	fixed := pat.Mask()

	if s.naive {
		return findFirstNaive(data, bytes, fixed)
	}

	table, usable := buildSkipTable(bytes, fixed)
	if !usable {
		s.log.Debugln("Pattern", pat.String(), "has no usable skip table, falling back to naive scan")
		return findFirstNaive(data, bytes, fixed)
	}
	return findFirstHorspool(data, bytes, fixed, &table)
}

// ScanRange searches [base, base+length) for the first (lowest-address)
// match. A nil result with nil error means the pattern was not found;
// that is not an error condition.
func (s *Scanner) ScanRange(pat memory.Pattern, base memory.Address, length memory.Size) (*memory.PatternResult, error) {
	if pat.Size() == 0 {
		return nil, fmt.Errorf("%w: empty pattern", memory.ErrInvalidArgument)
	}

	data, err := s.provider.ReadMemory(base, length)
	if err != nil {
		return nil, fmt.Errorf("scan range at %s: %w", base.ToString(), err)
	}

	return s.scanSnapshot(data, base, pat), nil
}

// scanSnapshot searches an already-read region copy.
func (s *Scanner) scanSnapshot(data []byte, base memory.Address, pat memory.Pattern) *memory.PatternResult {
	if pat.Size() > len(data) {
		return nil
	}

	offset := s.findFirst(data, pat)
	if offset < 0 {
		return nil
	}

	matched := make([]byte, pat.Size())
	copy(matched, data[offset:offset+pat.Size()])

	return &memory.PatternResult{
		Address:      base.Add(int64(offset)),
		PatternName:  pat.Name(),
		MatchedBytes: matched,
	}
}

// ScanModule resolves a module's base and size through the provider and
// scans its full extent. A module the provider does not know fails with
// provider.ErrModuleNotFound.
func (s *Scanner) ScanModule(pat memory.Pattern, moduleName string) (*memory.PatternResult, error) {
	base, err := s.provider.ModuleBase(moduleName)
	if err != nil {
		return nil, fmt.Errorf("scan module %q: %w", moduleName, err)
	}
	size, err := s.provider.ModuleSize(moduleName)
	if err != nil {
		return nil, fmt.Errorf("scan module %q: %w", moduleName, err)
	}

	return s.ScanRange(pat, base, size)
}

// ScanProcess scans the process's primary module. Use ScanRegions for a
// sweep across every mapped region when the provider supports it.
func (s *Scanner) ScanProcess(pat memory.Pattern) (*memory.PatternResult, error) {
	name, err := s.provider.MainModule()
	if err != nil {
		return nil, fmt.Errorf("scan process: %w", err)
	}
	return s.ScanModule(pat, name)
}

// ScanMultiple scans each pattern independently over the same region.
// The region is read once; patterns are matched concurrently with a
// bounded worker count. Results follow input pattern order; patterns
// with no match are omitted.
func (s *Scanner) ScanMultiple(pats []memory.Pattern, base memory.Address, length memory.Size) ([]memory.PatternResult, error) {
	if len(pats) == 0 {
		return nil, nil
	}

	data, err := s.provider.ReadMemory(base, length)
	if err != nil {
		return nil, fmt.Errorf("scan range at %s: %w", base.ToString(), err)
	}

	maxdop := s.maxdop
	if maxdop == 0 {
		maxdop = uint(runtime.NumCPU())
	}

	s.log.Debugln("Scanning", len(pats), "patterns with maxdop=", maxdop)

	found := make([]*memory.PatternResult, len(pats))
	sem := make(chan struct{}, maxdop)
	var wg sync.WaitGroup

	for i, pat := range pats {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, pat memory.Pattern) {
			defer func() {
				<-sem
				wg.Done()
			}()
			found[i] = s.scanSnapshot(data, base, pat)
		}(i, pat)
	}
	wg.Wait()

	var results []memory.PatternResult
	for _, r := range found {
		if r != nil {
			results = append(results, *r)
		}
	}

	s.log.Infoln("Multi-pattern scan complete:", len(results), "of", len(pats), "patterns matched")

	return results, nil
}

// ScanRegions sweeps every readable mapped region of the target for all
// occurrences of the pattern. The provider must implement
// provider.RegionLister. Regions that fail to read are skipped and
// logged, not treated as scan failures.
func (s *Scanner) ScanRegions(pat memory.Pattern) ([]memory.PatternResult, error) {
	lister, ok := s.provider.(provider.RegionLister)
	if !ok {
		return nil, errors.New("provider cannot enumerate memory regions")
	}

	regions, err := lister.Regions()
	if err != nil {
		return nil, fmt.Errorf("enumerate regions: %w", err)
	}

	s.log.Infoln("Starting full sweep over", len(regions), "regions for pattern", pat.String())

	var results []memory.PatternResult
	for _, region := range regions {
		if !region.IsReadable() {
			continue
		}

		data, err := s.provider.ReadMemory(region.Base, region.Size)
		if err != nil {
			s.log.Debugln("Failed to read region at", region.Base.ToString(), err)
			continue
		}

		// Collect every occurrence within the region, not just the first.
		searchBase := region.Base
		for len(data) >= pat.Size() {
			r := s.scanSnapshot(data, searchBase, pat)
			if r == nil {
				break
			}
			results = append(results, *r)

			skip := int(uint64(r.Address)-uint64(searchBase)) + 1
			data = data[skip:]
			searchBase = searchBase.Add(int64(skip))
		}
	}

	s.log.Infoln("Sweep complete, found", len(results), "matches")

	return results, nil
}
