package graph

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func ident(s string) string { return s }

// chain builds n0 → n1 → ... → n(size-1) and returns the head.
func chain(size int) *Node[string] {
	head := NewNode("n0")
	prev := head
	for i := 1; i < size; i++ {
		next := NewNode(fmt.Sprintf("n%d", i))
		prev.Link(next)
		prev = next
	}
	return head
}

func diamond() *Node[string] {
	top := NewNode("top")
	left := NewNode("left")
	right := NewNode("right")
	bottom := NewNode("bottom")
	top.Link(left)
	top.Link(right)
	left.Link(bottom)
	right.Link(bottom)
	return top
}

func TestLinkMirrorsEdges(t *testing.T) {
	a, b := NewNode("a"), NewNode("b")
	a.Link(b)
	a.Link(b)

	if got := a.Outgoing(); len(got) != 1 || got[0] != b {
		t.Errorf("a.Outgoing() = %v, want [b]", got)
	}
	if got := b.Incoming(); len(got) != 1 || got[0] != a {
		t.Errorf("b.Incoming() = %v, want [a]", got)
	}
	if a.OutDegree() != 1 || b.InDegree() != 1 {
		t.Errorf("degrees = (%d, %d), want (1, 1)", a.OutDegree(), b.InDegree())
	}

	a.Unlink(b)
	if !a.IsLeaf() || b.InDegree() != 0 {
		t.Error("Unlink should remove both sides of the edge")
	}
}

func TestZeroNode(t *testing.T) {
	var n Node[string]
	if got := Size(&n, ident); got != 1 {
		t.Errorf("Size(zero node) = %d, want 1", got)
	}
	got, err := Postorder(&n, ident, ident, Options{})
	if err != nil {
		t.Fatalf("Postorder error: %v", err)
	}
	if len(got) != 1 || got[0] != "" {
		t.Errorf("Postorder(zero node) = %q, want [\"\"]", got)
	}
}

func TestNilRoot(t *testing.T) {
	if got := Size[string](nil, ident); got != 0 {
		t.Errorf("Size(nil) = %d, want 0", got)
	}
	got, err := Preorder[string, string](nil, ident, ident, Options{})
	if err != nil || len(got) != 0 {
		t.Errorf("Preorder(nil) = %v, %v, want empty, nil", got, err)
	}
}

func TestTraversalOrder(t *testing.T) {
	tests := []struct {
		name      string
		build     func() *Node[string]
		wantPre   []string
		wantPost  []string
		wantCount int
	}{
		{
			name:      "leaf",
			build:     func() *Node[string] { return NewNode("leaf") },
			wantPre:   []string{"leaf"},
			wantPost:  []string{"leaf"},
			wantCount: 1,
		},
		{
			name:      "chain",
			build:     func() *Node[string] { return chain(3) },
			wantPre:   []string{"n0", "n1", "n2"},
			wantPost:  []string{"n2", "n1", "n0"},
			wantCount: 3,
		},
		{
			name:      "diamond",
			build:     diamond,
			wantPre:   []string{"top", "left", "bottom", "right"},
			wantPost:  []string{"bottom", "left", "right", "top"},
			wantCount: 4,
		},
		{
			name: "two node cycle",
			build: func() *Node[string] {
				x, y := NewNode("x"), NewNode("y")
				x.Link(y)
				y.Link(x)
				return x
			},
			wantPre:   []string{"x", "y"},
			wantPost:  []string{"y", "x"},
			wantCount: 2,
		},
		{
			name: "self loop",
			build: func() *Node[string] {
				s := NewNode("self")
				s.Link(s)
				return s
			},
			wantPre:   []string{"self"},
			wantPost:  []string{"self"},
			wantCount: 1,
		},
		{
			name: "equal payloads collapse",
			build: func() *Node[string] {
				root := NewNode("root")
				root.Link(NewNode("dup"))
				root.Link(NewNode("dup"))
				return root
			},
			wantPre:   []string{"root", "dup"},
			wantPost:  []string{"dup", "root"},
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := tt.build()

			pre, err := Preorder(root, ident, ident, Options{})
			if err != nil {
				t.Fatalf("Preorder error: %v", err)
			}
			if !slices.Equal(pre, tt.wantPre) {
				t.Errorf("Preorder = %v, want %v", pre, tt.wantPre)
			}

			post, err := Postorder(root, ident, ident, Options{})
			if err != nil {
				t.Fatalf("Postorder error: %v", err)
			}
			if !slices.Equal(post, tt.wantPost) {
				t.Errorf("Postorder = %v, want %v", post, tt.wantPost)
			}

			if got := Size(root, ident); got != tt.wantCount {
				t.Errorf("Size = %d, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestVisitorResults(t *testing.T) {
	got, err := Postorder(chain(3), ident, func(s string) int { return len(s) }, Options{})
	if err != nil {
		t.Fatalf("Postorder error: %v", err)
	}
	if !slices.Equal(got, []int{2, 2, 2}) {
		t.Errorf("Postorder results = %v, want [2 2 2]", got)
	}
}

func TestDepthLimit(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		maxDepth int
		wantErr  bool
	}{
		{"within limit", 3, 3, false},
		{"exceeds limit", 5, 3, true},
		{"default limit exceeded", DefaultMaxDepth + 1, 0, true},
		{"default limit reached", DefaultMaxDepth, 0, false},
		{"unbounded deep chain", 3 * DefaultMaxDepth, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := chain(tt.size)
			got, err := Postorder(root, ident, ident, Options{MaxDepth: tt.maxDepth})
			if tt.wantErr {
				if !errors.Is(err, ErrDepthExceeded) {
					t.Fatalf("Postorder error = %v, want ErrDepthExceeded", err)
				}
				if got != nil {
					t.Errorf("Postorder returned %d results alongside error, want none", len(got))
				}
				return
			}
			if err != nil {
				t.Fatalf("Postorder error: %v", err)
			}
			if len(got) != tt.size {
				t.Errorf("Postorder returned %d results, want %d", len(got), tt.size)
			}
		})
	}
}

func TestDepthLimitIsPerCall(t *testing.T) {
	root := chain(10)
	if _, err := Preorder(root, ident, ident, Options{MaxDepth: 2}); !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("Preorder with MaxDepth 2 error = %v, want ErrDepthExceeded", err)
	}
	// A later call with default options is unaffected by the earlier limit.
	if _, err := Preorder(root, ident, ident, Options{}); err != nil {
		t.Fatalf("Preorder with defaults error: %v", err)
	}
}

func TestPostorderSeq(t *testing.T) {
	root := diamond()
	want, _ := Postorder(root, ident, ident, Options{})

	seq := PostorderSeq(root, ident, Options{})
	for range 2 {
		var got []string
		for p, err := range seq {
			if err != nil {
				t.Fatalf("PostorderSeq error: %v", err)
			}
			got = append(got, p)
		}
		if !slices.Equal(got, want) {
			t.Errorf("PostorderSeq = %v, want %v", got, want)
		}
	}
}

func TestPostorderSeqBreak(t *testing.T) {
	var got []string
	for p, err := range PostorderSeq(diamond(), ident, Options{}) {
		if err != nil {
			t.Fatalf("PostorderSeq error: %v", err)
		}
		got = append(got, p)
		if len(got) == 2 {
			break
		}
	}
	if !slices.Equal(got, []string{"bottom", "left"}) {
		t.Errorf("PostorderSeq prefix = %v, want [bottom left]", got)
	}
}

func TestPostorderSeqDepthError(t *testing.T) {
	var sawErr error
	for _, err := range PostorderSeq(chain(5), ident, Options{MaxDepth: 2}) {
		if err != nil {
			sawErr = err
		}
	}
	if !errors.Is(sawErr, ErrDepthExceeded) {
		t.Errorf("PostorderSeq error = %v, want ErrDepthExceeded", sawErr)
	}
}

func TestCheckWellFormed(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Node[string]
		wantErr bool
	}{
		{"linked diamond", diamond, false},
		{"linked cycle", func() *Node[string] {
			x, y := NewNode("x"), NewNode("y")
			x.Link(y)
			y.Link(x)
			return x
		}, false},
		{"outgoing only", func() *Node[string] {
			a, b := NewNode("a"), NewNode("b")
			a.AddOutgoing(b)
			return a
		}, true},
		{"incoming only", func() *Node[string] {
			a, b := NewNode("a"), NewNode("b")
			a.Link(b)
			b.AddIncoming(NewNode("ghost"))
			return a
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckWellFormed(tt.build(), ident)
			if tt.wantErr != (err != nil) {
				t.Fatalf("CheckWellFormed error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformed) {
				t.Errorf("CheckWellFormed error = %v, want ErrMalformed", err)
			}
		})
	}
}
