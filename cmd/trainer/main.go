// Command trainer is an interactive console over a simulated SuperTux
// process. It exercises the full stack end to end without needing a
// live game: pattern scanning, pointer-chain resolution and the hook
// lifecycle all run against a seeded mock provider.
package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alinkof1/supertux-trainer/hexdump"
	"github.com/alinkof1/supertux-trainer/hooks"
	"github.com/alinkof1/supertux-trainer/memory"
	"github.com/alinkof1/supertux-trainer/provider"
	"github.com/alinkof1/supertux-trainer/scanner"
)

const (
	moduleName = "supertux2"
	moduleBase = memory.Address(0x400000)
	moduleSize = memory.Size(0x100000)

	heapBase = memory.Address(0x7f0000000000)
	heapSize = 0x10000

	slabBase = memory.Address(0x600000)
	slabSize = memory.Size(0x4000)

	// Player struct layout inside the heap region.
	playerOffset = 0x1000
	healthOffset = 0x20
	coinsOffset  = 0x24
)

// knownPattern pairs a function's scan signature with the handler we
// would redirect it to.
type knownPattern struct {
	name        string
	tokens      string
	replacement memory.Address
}

var knownPatterns = []knownPattern{
	{"Player::add_coins", "8b 05 78 56 34 12 85 c0", 0x700000},
	{"Player::check_bounds", "01 1d bc 9a 78 56", 0x700100},
	{"GameSession::update", "55 48 89 e5 48 83 ec 20", 0x700200},
}

type console struct {
	provider *provider.MockProvider
	scanner  *scanner.Scanner
	resolver *scanner.Resolver
	engine   *hooks.Engine
	hooks    map[string]*hooks.Hook
}

func main() {
	c, err := newConsole()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer c.engine.Uninitialize()

	fmt.Printf("supertux-trainer console (simulated %s at %s)\n", moduleName, moduleBase.ToString())
	fmt.Println("Type 'help' for commands.")

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}

		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "quit" || fields[0] == "exit" {
			break
		}

		if err := c.dispatch(fields[0], fields[1:]); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func newConsole() (*console, error) {
	mock := seedProcess()

	engine := hooks.NewEngine(hooks.NewProcessPatcher(mock, hooks.NewBumpAllocator(slabBase, slabSize)))
	if err := engine.Initialize(); err != nil {
		return nil, err
	}

	return &console{
		provider: mock,
		scanner:  scanner.New(mock),
		resolver: scanner.NewResolver(mock),
		engine:   engine,
		hooks:    make(map[string]*hooks.Hook),
	}, nil
}

// seedProcess lays out a fake supertux2 image: known function bodies in
// the code region, a player struct on the heap, and a static pointer to
// it inside the module.
func seedProcess() *provider.MockProvider {
	mock := provider.NewMock()

	code := make([]byte, moduleSize)
	for i := range code {
		code[i] = 0x90
	}

	bodies := []struct {
		offset int64
		tokens string
	}{
		{0x12345, knownPatterns[0].tokens},
		{0x23456, knownPatterns[1].tokens},
		{0x34567, knownPatterns[2].tokens},
	}
	for _, b := range bodies {
		for i, tok := range strings.Fields(b.tokens) {
			v, _ := strconv.ParseUint(tok, 16, 8)
			code[b.offset+int64(i)] = byte(v)
		}
	}

	// Static pointer at module+0x56789 -> player struct.
	binary.LittleEndian.PutUint64(code[0x56789:], uint64(heapBase)+playerOffset)

	heap := make([]byte, heapSize)
	binary.LittleEndian.PutUint32(heap[playerOffset+healthOffset:], 3)  // health
	binary.LittleEndian.PutUint32(heap[playerOffset+coinsOffset:], 50) // coins

	mock.AddRegion(moduleBase, code)
	mock.AddRegion(heapBase, heap)
	mock.AddRegion(slabBase, make([]byte, slabSize))
	mock.AddModule(moduleName, moduleBase, moduleSize)

	return mock
}

func (c *console) dispatch(cmd string, args []string) error {
	switch cmd {
	case "help":
		printHelp()
		return nil
	case "scan":
		return c.cmdScan(args)
	case "sweep":
		return c.cmdSweep(args)
	case "patterns":
		return c.cmdPatterns()
	case "hook":
		return c.cmdHook(args)
	case "hooks":
		return c.cmdHooks()
	case "enable":
		return c.cmdToggle(args, true)
	case "disable":
		return c.cmdToggle(args, false)
	case "remove":
		return c.cmdRemove(args)
	case "resolve":
		return c.cmdResolve(args)
	case "mem":
		return c.cmdMem(args)
	case "set":
		return c.cmdSet(args)
	case "player":
		return c.cmdPlayer()
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
}

func printHelp() {
	fmt.Print(`Commands:
  scan <tokens...>          scan the main module, e.g. scan 8b 05 ?? ?? 34 12
  sweep <tokens...>         scan every mapped region for all occurrences
  patterns                  scan for all known function signatures at once
  hook <name>               install a hook on a known function (disabled)
  hooks                     list hook records
  enable <name>             make a hook live
  disable <name>            restore original control flow, keep the hook
  remove <name>             remove a hook entirely
  resolve <base> <off...>   follow a pointer chain (hex values)
  mem <addr> [len]          hexdump memory
  set <addr> <value>        write a 32-bit value
  player                    show the player struct via its pointer chain
  quit
`)
}

func (c *console) cmdScan(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: scan <tokens...>")
	}

	pat, err := memory.NewPattern(strings.Join(args, " "), "console")
	if err != nil {
		return err
	}

	result, err := c.scanner.ScanModule(pat, moduleName)
	if err != nil {
		return err
	}
	if result == nil {
		fmt.Println("Pattern not found.")
		return nil
	}

	fmt.Printf("Match at %s\n", result.Address.ToString())
	return c.dumpContext(result.Address, pat.Size())
}

func (c *console) cmdSweep(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: sweep <tokens...>")
	}

	pat, err := memory.NewPattern(strings.Join(args, " "), "sweep")
	if err != nil {
		return err
	}

	results, err := c.scanner.ScanRegions(pat)
	if err != nil {
		return err
	}

	fmt.Printf("%d occurrence(s)\n", len(results))
	for _, r := range results {
		fmt.Printf("  %s\n", r.Address.ToString())
	}
	return nil
}

func (c *console) cmdPatterns() error {
	pats := make([]memory.Pattern, 0, len(knownPatterns))
	for _, kp := range knownPatterns {
		pat, err := memory.NewPattern(kp.tokens, kp.name)
		if err != nil {
			return err
		}
		pats = append(pats, pat)
	}

	results, err := c.scanner.ScanMultiple(pats, moduleBase, moduleSize)
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Printf("  %-24s %s\n", r.PatternName, r.Address.ToString())
	}
	if len(results) < len(pats) {
		fmt.Printf("  (%d signature(s) not found)\n", len(pats)-len(results))
	}
	return nil
}

func (c *console) findKnown(name string) (*knownPattern, error) {
	for i := range knownPatterns {
		if knownPatterns[i].name == name {
			return &knownPatterns[i], nil
		}
	}
	return nil, fmt.Errorf("unknown function %q, see 'patterns' for names", name)
}

func (c *console) cmdHook(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: hook <name>")
	}
	name := args[0]

	if _, exists := c.hooks[name]; exists {
		return fmt.Errorf("hook %q already installed", name)
	}

	kp, err := c.findKnown(name)
	if err != nil {
		return err
	}

	pat, err := memory.NewPattern(kp.tokens, kp.name)
	if err != nil {
		return err
	}
	result, err := c.scanner.ScanModule(pat, moduleName)
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("signature for %q not found in %s", name, moduleName)
	}

	h := hooks.NewHook(c.engine, name, result.Address, kp.replacement, hooks.KindJump)
	if err := h.Install(); err != nil {
		return err
	}
	c.hooks[name] = h

	fmt.Printf("Installed %q at %s (trampoline %s), disabled.\n",
		name, h.Target().ToString(), h.Original().ToString())
	return nil
}

func (c *console) cmdHooks() error {
	records := c.engine.Records()
	if len(records) == 0 {
		fmt.Println("No hooks installed.")
		return nil
	}

	for _, r := range records {
		state := "disabled"
		if r.Enabled {
			state = "ENABLED"
		}
		fmt.Printf("  %s -> %s  kind=%s  original=%s  %s\n",
			r.Target.ToString(), r.Replacement.ToString(), r.Kind, r.Original.ToString(), state)
	}
	return nil
}

func (c *console) cmdToggle(args []string, enable bool) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: enable|disable <name>")
	}

	h, exists := c.hooks[args[0]]
	if !exists {
		return fmt.Errorf("no hook named %q", args[0])
	}

	if enable {
		if err := h.Enable(); err != nil {
			return err
		}
		fmt.Printf("%q is live.\n", args[0])
		return c.dumpContext(h.Target(), 8)
	}

	if err := h.Disable(); err != nil {
		return err
	}
	fmt.Printf("%q disabled, original bytes restored.\n", args[0])
	return c.dumpContext(h.Target(), 8)
}

func (c *console) cmdRemove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: remove <name>")
	}

	h, exists := c.hooks[args[0]]
	if !exists {
		return fmt.Errorf("no hook named %q", args[0])
	}

	if err := h.Close(); err != nil {
		return err
	}
	delete(c.hooks, args[0])

	fmt.Printf("Removed %q.\n", args[0])
	return nil
}

func (c *console) cmdResolve(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: resolve <base> <offset...>")
	}

	base, err := parseAddress(args[0])
	if err != nil {
		return err
	}

	offsets := make([]int64, 0, len(args)-1)
	for _, a := range args[1:] {
		v, err := strconv.ParseInt(strings.TrimPrefix(a, "0x"), 16, 64)
		if err != nil {
			return fmt.Errorf("bad offset %q: %v", a, err)
		}
		offsets = append(offsets, v)
	}

	addr, err := c.resolver.ResolvePointerChain(base, offsets)
	if err != nil {
		return err
	}

	fmt.Printf("Resolved to %s\n", addr.ToString())
	return nil
}

func (c *console) cmdMem(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: mem <addr> [len]")
	}

	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}

	length := memory.Size(64)
	if len(args) == 2 {
		v, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return fmt.Errorf("bad length %q: %v", args[1], err)
		}
		length = memory.Size(v)
	}

	data, err := c.provider.ReadMemory(addr, length)
	if err != nil {
		return err
	}

	opts := hexdump.DefaultOptions()
	opts.StartAddress = uint64(addr)
	fmt.Print(hexdump.Dump(data, opts))
	return nil
}

func (c *console) cmdSet(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: set <addr> <value>")
	}

	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	value, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("bad value %q: %v", args[1], err)
	}

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(value))
	if err := c.provider.WriteMemory(addr, buf); err != nil {
		return err
	}

	fmt.Printf("Wrote %d to %s\n", value, addr.ToString())
	return nil
}

// cmdPlayer reads the player struct the way the game would: static
// pointer in the module, then field offsets.
func (c *console) cmdPlayer() error {
	player, err := c.resolver.ResolvePointerChain(moduleBase, []int64{0x56789, 0})
	if err != nil {
		return err
	}

	health, err := c.readU32(player.Add(healthOffset))
	if err != nil {
		return err
	}
	coins, err := c.readU32(player.Add(coinsOffset))
	if err != nil {
		return err
	}

	fmt.Printf("Player at %s: health=%d coins=%d\n", player.ToString(), health, coins)
	return nil
}

func (c *console) readU32(addr memory.Address) (uint32, error) {
	data, err := c.provider.ReadMemory(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// dumpContext hexdumps the bytes around addr with the range of interest
// highlighted.
func (c *console) dumpContext(addr memory.Address, size int) error {
	const before = 16
	start := addr.Add(-before)
	length := memory.Size(before + size + 16)

	data, err := c.provider.ReadMemory(start, length)
	if err != nil {
		return err
	}

	fmt.Print(hexdump.DumpHighlight(data, uint64(start), before, size))
	return nil
}

func parseAddress(s string) (memory.Address, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("bad address %q: %v", s, err)
	}
	return memory.Address(v), nil
}
