package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ssargent/bencodec/pkg/bencode"
	"github.com/ssargent/bencodec/pkg/bjson"
)

// maxHexBytes bounds how much of a binary string the tree view prints
const maxHexBytes = 32

// formatFlag is a --format value restricted to a fixed set of names
type formatFlag struct {
	value   string
	allowed []string
}

var _ pflag.Value = (*formatFlag)(nil)

func newFormatFlag(def string, allowed ...string) *formatFlag {
	return &formatFlag{value: def, allowed: allowed}
}

func (f *formatFlag) String() string { return f.value }

func (f *formatFlag) Type() string { return "format" }

func (f *formatFlag) Set(s string) error {
	for _, a := range f.allowed {
		if s == a {
			f.value = s
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(f.allowed, ", "))
}

// readInput reads the named file, or stdin when the name is absent or "-"
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// openInput is readInput for streaming consumers
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}

// writeOutput writes data to path, or to stdout when path is empty or "-"
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// renderValue formats v as indented JSON or as a tree
func renderValue(v bencode.Value, format string) ([]byte, error) {
	switch format {
	case "tree":
		var b strings.Builder
		writeTree(&b, v, "", 0)
		return []byte(b.String()), nil
	case "raw":
		return bencode.Marshal(v)
	default:
		out, err := bjson.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}
}

// writeTree prints one line per value, children indented under their parent
func writeTree(b *strings.Builder, v bencode.Value, label string, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(label)

	switch v.Kind() {
	case bencode.KindInteger:
		n, _ := v.AsInteger()
		fmt.Fprintf(b, "Integer %d\n", n)
	case bencode.KindByteString:
		s, _ := v.AsByteString()
		fmt.Fprintf(b, "ByteString (%d) %s\n", len(s), displayBytes(s))
	case bencode.KindList:
		items, _ := v.AsList()
		fmt.Fprintf(b, "List (%d %s)\n", len(items), plural(len(items), "item", "items"))
		for i, item := range items {
			writeTree(b, item, fmt.Sprintf("[%d] ", i), depth+1)
		}
	case bencode.KindDictionary:
		d, _ := v.AsDictionary()
		fmt.Fprintf(b, "Dictionary (%d %s)\n", d.Len(), plural(d.Len(), "entry", "entries"))
		d.Range(func(key string, e *bencode.Value) bool {
			writeTree(b, *e, displayBytes([]byte(key))+": ", depth+1)
			return true
		})
	default:
		b.WriteString("Empty\n")
	}
}

// displayBytes quotes printable text and hex-encodes anything else
func displayBytes(s []byte) string {
	if isPrintable(s) {
		return fmt.Sprintf("%q", s)
	}
	if len(s) > maxHexBytes {
		return "0x" + hex.EncodeToString(s[:maxHexBytes]) + "..."
	}
	return "0x" + hex.EncodeToString(s)
}

func isPrintable(s []byte) bool {
	if !utf8.Valid(s) {
		return false
	}
	for _, r := range string(s) {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
