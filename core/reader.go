package lispy

import (
	"strconv"
	"strings"
)

// Read converts a syntax tree node into a Value tree.
func Read(node *Node) *Value {
	if strings.Contains(node.Tag, "number") {
		return readNumber(node.Contents)
	}
	if strings.Contains(node.Tag, "symbol") {
		return SymVal(node.Contents)
	}

	var list *Value
	switch {
	case node.Tag == RootTag || strings.Contains(node.Tag, "sexpr"):
		list = SexprVal()
	case strings.Contains(node.Tag, "qexpr"):
		list = QexprVal()
	default:
		list = SexprVal()
	}

	for _, child := range node.Children {
		switch child.Contents {
		case "(", ")", "{", "}":
			continue
		}
		if child.Tag == regexTag {
			continue
		}
		list.Add(Read(child))
	}
	return list
}

func readNumber(text string) *Value {
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return ErrVal("Invalid number")
	}
	return NumVal(n)
}
