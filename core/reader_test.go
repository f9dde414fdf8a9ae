package lispy

import "testing"

func TestReadRootIsSexpr(t *testing.T) {
	v := Read(mustParse(t, "+ 1 {2 x} (3)"))
	if v.Kind != ValSexpr {
		t.Fatalf("root kind = %s", v.KindName())
	}
	if got := v.String(); got != "(+ 1 {2 x} (3))" {
		t.Fatalf("read = %s", got)
	}
}

func TestReadSkipsBracketsAndAnchors(t *testing.T) {
	v := Read(mustParse(t, "{}"))
	if v.Len() != 1 {
		t.Fatalf("root len = %d", v.Len())
	}
	q := v.Cells[0]
	if q.Kind != ValQexpr || q.Len() != 0 {
		t.Fatalf("expected empty qexpr, got %s", q)
	}
}

func TestReadNumbers(t *testing.T) {
	tests := []struct {
		contents string
		want     string
	}{
		{"0", "0"},
		{"-12", "-12"},
		{"9223372036854775807", "9223372036854775807"},
		{"9223372036854775808", "Error: Invalid number"},
		{"-9223372036854775809", "Error: Invalid number"},
	}
	for _, tt := range tests {
		v := Read(&Node{Tag: "expr|number|regex", Contents: tt.contents})
		if got := v.String(); got != tt.want {
			t.Errorf("read %q = %s, want %s", tt.contents, got, tt.want)
		}
	}
}

func TestReadHandBuiltTree(t *testing.T) {
	// Trees from another producer only need matching tag substrings.
	tree := &Node{Tag: ">", Children: []*Node{
		{Tag: "regex"},
		{Tag: "expr|sexpr", Children: []*Node{
			{Tag: "char", Contents: "("},
			{Tag: "symbol", Contents: "list"},
			{Tag: "number", Contents: "1"},
			{Tag: "char", Contents: ")"},
		}},
		{Tag: "regex"},
	}}
	v := Read(tree)
	if got := v.String(); got != "((list 1))" {
		t.Fatalf("read = %s", got)
	}
	if got := Evaluate(NewRootEnv(), tree).String(); got != "{1}" {
		t.Fatalf("evaluate = %s", got)
	}
}
