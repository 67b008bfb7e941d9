package btree

import (
	"fmt"
	"io"

	"github.com/ephilipz/blocktree/pkg/block"
)

// DisplayMode selects one of the three depth-first dump formats.
type DisplayMode int

const (
	// Depth prints an indented, human-readable node-by-node dump.
	Depth DisplayMode = iota
	// DepthDot prints a graphviz "digraph tree { ... }" description.
	DepthDot
	// SortedKeyVal prints only the leaves' (key,value) pairs in key order.
	SortedKeyVal
)

// Display walks the tree depth-first, read-only, writing one of the three
// formats to w. It never mutates a block.
func (t *Tree) Display(w io.Writer, mode DisplayMode) error {
	if mode == DepthDot {
		fmt.Fprintln(w, "digraph tree {")
	}
	if err := t.displayNode(w, t.superblock.RootNode, mode); err != nil {
		return err
	}
	if mode == DepthDot {
		fmt.Fprintln(w, "}")
	}
	return nil
}

// DumpDot writes the graphviz form of Display, for parity with the original
// implementation's ostream Print operator.
func (t *Tree) DumpDot(w io.Writer) error {
	return t.Display(w, DepthDot)
}

func (t *Tree) displayNode(w io.Writer, index uint64, mode DisplayMode) error {
	n, err := t.load(index)
	if err != nil {
		return err
	}

	switch n.Kind {
	case block.Root, block.Interior:
		if mode == Depth {
			fmt.Fprintf(w, "%d: interior ", index)
			for i := 0; i < int(n.NumKeys); i++ {
				k, err := n.Key(i)
				if err != nil {
					return newErr("Display", Size, err)
				}
				p, err := n.Ptr(i)
				if err != nil {
					return newErr("Display", Size, err)
				}
				fmt.Fprintf(w, "*%d %x ", p, k)
			}
			last, err := n.Ptr(int(n.NumKeys))
			if err != nil {
				return newErr("Display", Size, err)
			}
			fmt.Fprintf(w, "*%d\n", last)
		} else if mode == DepthDot {
			fmt.Fprintf(w, "  %d [label=\"%d: interior\"];\n", index, index)
		}

		for i := 0; i <= int(n.NumKeys); i++ {
			p, err := n.Ptr(i)
			if err != nil {
				return newErr("Display", Size, err)
			}
			if mode == DepthDot {
				fmt.Fprintf(w, "  %d -> %d;\n", index, p)
			}
			if err := t.displayNode(w, p, mode); err != nil {
				return err
			}
		}
		return nil

	case block.Leaf:
		switch mode {
		case Depth:
			fmt.Fprintf(w, "%d: leaf ", index)
			for i := 0; i < int(n.NumKeys); i++ {
				k, _ := n.Key(i)
				v, _ := n.Val(i)
				fmt.Fprintf(w, "(%x,%x) ", k, v)
			}
			fmt.Fprintln(w)
		case DepthDot:
			fmt.Fprintf(w, "  %d [label=\"%d: leaf\"];\n", index, index)
		case SortedKeyVal:
			for i := 0; i < int(n.NumKeys); i++ {
				k, err := n.Key(i)
				if err != nil {
					return newErr("Display", Size, err)
				}
				v, err := n.Val(i)
				if err != nil {
					return newErr("Display", Size, err)
				}
				fmt.Fprintf(w, "(%s,%s)\n", k, v)
			}
		}
		return nil

	default:
		return newErr("Display", Insane, nil)
	}
}
