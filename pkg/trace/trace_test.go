package trace

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/labels"
)

func TestParse(t *testing.T) {
	input := `# initial sync
W 0 4096 peer=a
r 8 512

  R   100 1024   peer=b,zone=z1
# done
`
	ops, err := Parse(strings.NewReader(input))
	assert.NoError(t, err)

	type result struct {
		Line   int
		Kind   Kind
		Start  uint64
		Length uint32
		Labels labels.Set
	}
	got := make([]result, 0, len(ops))
	for _, op := range ops {
		got = append(got, result{op.Line, op.Kind, op.Start, op.Length, op.Labels()})
	}
	want := []result{
		{Line: 2, Kind: Write, Start: 0, Length: 4096, Labels: labels.Set{"op": "write", "peer": "a"}},
		{Line: 3, Kind: Read, Start: 8, Length: 512, Labels: labels.Set{"op": "read"}},
		{Line: 5, Kind: Read, Start: 100, Length: 1024, Labels: labels.Set{"op": "read", "peer": "b", "zone": "z1"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]struct {
		input string
		line  string
	}{
		"TooFewFields": {
			input: "W 0\n",
			line:  "line 1",
		},
		"TooManyFields": {
			input: "W 0 512 a=b extra\n",
			line:  "line 1",
		},
		"UnknownOp": {
			input: "# x\nD 0 512\n",
			line:  "line 2",
		},
		"BadStart": {
			input: "W -1 512\n",
			line:  "line 1",
		},
		"LengthOverflow": {
			input: "W 0 4294967296\n",
			line:  "line 1",
		},
		"BadLabels": {
			input: "R 0 512 =b\n",
			line:  "line 1",
		},
		"ReservedLabel": {
			input: "R 0 512 op=write\n",
			line:  "line 1",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input))
			if !errors.Is(err, ErrSyntax) {
				t.Fatalf("expected ErrSyntax, got %v", err)
			}
			assert.Contains(t, err.Error(), tc.line)
		})
	}
}

func TestLabelsCopy(t *testing.T) {
	ops, err := Parse(strings.NewReader("W 0 512 peer=a\n"))
	assert.NoError(t, err)

	l := ops[0].Labels()
	l["peer"] = "changed"
	assert.Equal(t, "a", ops[0].Labels()["peer"])
	assert.Equal(t, "write 0+512 peer=a", ops[0].String())
}
