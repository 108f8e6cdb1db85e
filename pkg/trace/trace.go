// Package trace reads line oriented I/O traces.
//
// Every line holds one operation:
//
//	<R|W> <start-sector> <length-bytes> [key=value,...]
//
// Blank lines and lines starting with '#' are ignored.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/labels"
)

// LabelOp is set on the labels of every parsed operation.
const LabelOp = "op"

var ErrSyntax = errors.New("invalid trace line")

type Kind int

const (
	Read Kind = iota
	Write
)

func (k Kind) String() string {
	if k == Read {
		return "read"
	}
	return "write"
}

// Op is a single traced operation.
type Op struct {
	Line   int
	Kind   Kind
	Start  uint64
	Length uint32
	labels labels.Set
}

// Labels returns the labels of the operation including op=read|write.
func (o Op) Labels() labels.Set {
	l := make(labels.Set, len(o.labels)+1)
	for k, v := range o.labels {
		l[k] = v
	}
	l[LabelOp] = o.Kind.String()
	return l
}

func (o Op) String() string {
	s := fmt.Sprintf("%s %d+%d", o.Kind, o.Start, o.Length)
	if len(o.labels) > 0 {
		s += " " + o.labels.String()
	}
	return s
}

// Parse reads all operations from r.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		op, err := parseLine(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		op.Line = line
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func parseLine(text string) (Op, error) {
	var op Op
	tokens := strings.Fields(text)
	if len(tokens) != 3 && len(tokens) != 4 {
		return op, fmt.Errorf("%w: want 3 or 4 fields, got %d: %q", ErrSyntax, len(tokens), text)
	}

	switch tokens[0] {
	case "R", "r":
		op.Kind = Read
	case "W", "w":
		op.Kind = Write
	default:
		return op, fmt.Errorf("%w: unknown operation %q", ErrSyntax, tokens[0])
	}

	start, err := strconv.ParseUint(tokens[1], 10, 64)
	if err != nil {
		return op, fmt.Errorf("%w: start sector: %v", ErrSyntax, err)
	}
	length, err := strconv.ParseUint(tokens[2], 10, 32)
	if err != nil {
		return op, fmt.Errorf("%w: length: %v", ErrSyntax, err)
	}
	op.Start = start
	op.Length = uint32(length)

	if len(tokens) == 4 {
		l, err := labels.ConvertSelectorToLabelsMap(tokens[3])
		if err != nil {
			return op, fmt.Errorf("%w: labels: %v", ErrSyntax, err)
		}
		if _, ok := l[LabelOp]; ok {
			return op, fmt.Errorf("%w: label %q is reserved", ErrSyntax, LabelOp)
		}
		op.labels = l
	}
	return op, nil
}
