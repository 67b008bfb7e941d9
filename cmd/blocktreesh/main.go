// Command blocktreesh is an interactive shell for exercising a blocktree
// store: attach to a file, insert/lookup/update fixed-size records, dump the
// tree, and run the sanity checker, without writing a Go program to do it.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ephilipz/blocktree/pkg/blockio"
	"github.com/ephilipz/blocktree/pkg/btree"
	"github.com/ephilipz/blocktree/pkg/config"
	"github.com/ephilipz/blocktree/pkg/logging"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".exit"),
	readline.PcItem("ATTACH"),
	readline.PcItem("LOOKUP"),
	readline.PcItem("UPDATE"),
	readline.PcItem("INSERT"),
	readline.PcItem("DUMP",
		readline.PcItem("DEPTH"),
		readline.PcItem("DOT"),
		readline.PcItem("SORTED"),
	),
	readline.PcItem("SANITY"),
)

const helpText = `
blocktreesh - interactive shell for a disk-backed fixed-key/value B-tree.

Commands:
  .help                                        Show this help message
  .exit                                        Exit the shell

  ATTACH path keysize valuesize blocksize n [create]
                                                Open (or create, with 'create') a store
  ATTACH --config configpath [create]          Open (or create) a store described by a
                                                JSON config file (see pkg/config.Config)
  LOOKUP hexkey                                Print the value bound to hexkey
  UPDATE hexkey hexvalue                       Overwrite an existing binding
  INSERT hexkey hexvalue                       Bind a new key; fails on conflict
  DUMP [DEPTH|DOT|SORTED]                      Dump the tree (default DEPTH)
  SANITY                                       Run the invariant checker

Keys and values are hex-encoded byte strings, e.g. INSERT 6b6579 76616c75.
`

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "blocktreesh - interactive B-tree shell\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: blocktreesh\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Positional arguments are not read; use ATTACH from the shell to open\n")
		fmt.Fprintf(flag.CommandLine.Output(), "or create a store.\n")
	}
	flag.Parse()

	log := logging.New().WithLevel(logging.LevelWarn)
	sh := &shell{log: log}
	defer sh.closeCache()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "blocktree> ",
		HistoryFile:     "/tmp/.blocktreesh_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing readline: %s\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("blocktreesh - enter .help for usage hints.")
	for {
		line, readErr := rl.Readline()
		if readErr != nil {
			if readErr == readline.ErrInterrupt {
				if len(line) == 0 {
					break
				}
				continue
			}
			if readErr == io.EOF {
				fmt.Println("Goodbye!")
				break
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", readErr)
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !sh.dispatch(line, os.Stdout) {
			break
		}
	}
}

// shell holds the one attached tree, if any, across command invocations.
type shell struct {
	log   logging.Logger
	cache blockio.Cache
	tree  *btree.Tree
}

func (s *shell) closeCache() {
	if dc, ok := s.cache.(*blockio.DiskCache); ok {
		dc.Close()
	}
	s.cache = nil
}

// dispatch runs one line and reports whether the shell loop should keep
// going. It never calls os.Exit itself: ".exit" closes the cache and
// returns false instead, so main's deferred cleanup still runs.
func (s *shell) dispatch(line string, w io.Writer) bool {
	parts := strings.Fields(line)
	cmd := strings.ToUpper(parts[0])

	if strings.HasPrefix(parts[0], ".") {
		switch strings.ToLower(parts[0]) {
		case ".help":
			fmt.Fprint(w, helpText)
		case ".exit":
			fmt.Fprintln(w, "Goodbye!")
			s.closeCache()
			return false
		default:
			fmt.Fprintf(w, "Unknown command: %s\n", parts[0])
		}
		return true
	}

	switch cmd {
	case "ATTACH":
		s.cmdAttach(parts[1:], w)
	case "LOOKUP":
		s.cmdLookup(parts[1:], w)
	case "UPDATE":
		s.cmdUpdate(parts[1:], w)
	case "INSERT":
		s.cmdInsert(parts[1:], w)
	case "DUMP":
		s.cmdDump(parts[1:], w)
	case "SANITY":
		s.cmdSanity(w)
	default:
		fmt.Fprintf(w, "Unknown command: %s. Try .help.\n", cmd)
	}
	return true
}

func (s *shell) cmdAttach(args []string, w io.Writer) {
	if len(args) >= 2 && (args[0] == "--config" || args[0] == "-config") {
		cfg, err := config.Load(args[1])
		if err != nil {
			fmt.Fprintf(w, "Error loading config %s: %s\n", args[1], err)
			return
		}
		create := len(args) > 2 && strings.EqualFold(args[2], "create")
		s.attachConfig(cfg, create, w)
		return
	}

	if len(args) < 5 {
		fmt.Fprintln(w, "Error: ATTACH path keysize valuesize blocksize numblocks [create]")
		return
	}
	numBlocks, err4 := strconv.Atoi(args[4])
	keySize, err1 := strconv.Atoi(args[1])
	valSize, err2 := strconv.Atoi(args[2])
	blockSize, err3 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		fmt.Fprintln(w, "Error: keysize, valuesize, blocksize, numblocks must be integers")
		return
	}
	create := len(args) > 5 && strings.EqualFold(args[5], "create")

	cfg := &config.Config{Path: args[0], KeySize: keySize, ValueSize: valSize, BlockSize: blockSize, NumBlocks: numBlocks}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(w, "Error: %s\n", err)
		return
	}
	s.attachConfig(cfg, create, w)
}

// attachConfig opens the disk cache and attaches the tree described by cfg,
// re-deriving KEY_SIZE/VALUE_SIZE/BLOCK_SIZE from cfg the way a remount of
// an existing store needs to.
func (s *shell) attachConfig(cfg *config.Config, create bool, w io.Writer) {
	s.closeCache()
	cache, err := blockio.OpenDiskCache(cfg.Path, cfg.BlockSize, uint64(cfg.NumBlocks))
	if err != nil {
		fmt.Fprintf(w, "Error opening %s: %s\n", cfg.Path, err)
		return
	}
	s.cache = cache

	s.tree = btree.New(cfg.KeySize, cfg.ValueSize, cache).WithLogger(s.log)
	if err := s.tree.Attach(0, create); err != nil {
		fmt.Fprintf(w, "Error attaching: %s\n", err)
		s.tree = nil
		return
	}
	fmt.Fprintf(w, "Attached to %s (key=%d value=%d block=%d blocks=%d)\n", cfg.Path, cfg.KeySize, cfg.ValueSize, cfg.BlockSize, cfg.NumBlocks)
}

func (s *shell) requireTree(w io.Writer) bool {
	if s.tree == nil {
		fmt.Fprintln(w, "Error: no store attached. Use ATTACH first.")
		return false
	}
	return true
}

func (s *shell) cmdLookup(args []string, w io.Writer) {
	if !s.requireTree(w) {
		return
	}
	if len(args) < 1 {
		fmt.Fprintln(w, "Error: LOOKUP hexkey")
		return
	}
	key, err := hex.DecodeString(args[0])
	if err != nil {
		fmt.Fprintf(w, "Error: invalid hex key: %s\n", err)
		return
	}
	val, err := s.tree.Lookup(key)
	if err != nil {
		fmt.Fprintf(w, "Error: %s\n", err)
		return
	}
	fmt.Fprintf(w, "%s\n", hex.EncodeToString(val))
}

func (s *shell) cmdUpdate(args []string, w io.Writer) {
	if !s.requireTree(w) {
		return
	}
	if len(args) < 2 {
		fmt.Fprintln(w, "Error: UPDATE hexkey hexvalue")
		return
	}
	key, err1 := hex.DecodeString(args[0])
	val, err2 := hex.DecodeString(args[1])
	if err1 != nil || err2 != nil {
		fmt.Fprintln(w, "Error: invalid hex key or value")
		return
	}
	if err := s.tree.Update(key, val); err != nil {
		fmt.Fprintf(w, "Error: %s\n", err)
		return
	}
	fmt.Fprintln(w, "OK")
}

func (s *shell) cmdInsert(args []string, w io.Writer) {
	if !s.requireTree(w) {
		return
	}
	if len(args) < 2 {
		fmt.Fprintln(w, "Error: INSERT hexkey hexvalue")
		return
	}
	key, err1 := hex.DecodeString(args[0])
	val, err2 := hex.DecodeString(args[1])
	if err1 != nil || err2 != nil {
		fmt.Fprintln(w, "Error: invalid hex key or value")
		return
	}
	if err := s.tree.Insert(key, val); err != nil {
		fmt.Fprintf(w, "Error: %s\n", err)
		return
	}
	fmt.Fprintln(w, "OK")
}

func (s *shell) cmdDump(args []string, w io.Writer) {
	if !s.requireTree(w) {
		return
	}
	mode := btree.Depth
	if len(args) > 0 {
		switch strings.ToUpper(args[0]) {
		case "DEPTH":
			mode = btree.Depth
		case "DOT":
			mode = btree.DepthDot
		case "SORTED":
			mode = btree.SortedKeyVal
		default:
			fmt.Fprintf(w, "Error: unknown dump mode %s\n", args[0])
			return
		}
	}
	if err := s.tree.Display(w, mode); err != nil {
		fmt.Fprintf(w, "Error: %s\n", err)
	}
}

func (s *shell) cmdSanity(w io.Writer) {
	if !s.requireTree(w) {
		return
	}
	if err := s.tree.SanityCheck(); err != nil {
		fmt.Fprintf(w, "INSANE: %s\n", err)
		return
	}
	fmt.Fprintln(w, "OK")
}
