package lexer

import (
	"fmt"
	"sort"
	"strings"
)

// Class is the dispatch category of a symbol
type Class int

const (
	// Special classes
	OTHER Class = iota

	// Structure
	OPERATOR    // ; : = + - * ...
	KEYWORD     // if, def, return, ...
	COMMENT     // # to end of line
	STRING      // "hello", 'world'
	PLACEHOLDER // string literal already hoisted by the whole-text pass

	// Literals and names
	NUMBER      // 8080
	REPLACEMENT // True, False
	BUILTIN     // print, len, ...
	IDENTIFIER  // anything renamable
)

// Pre-computed class name lookup for fast debugging
var classNames = [...]string{
	OTHER:       "OTHER",
	OPERATOR:    "OPERATOR",
	KEYWORD:     "KEYWORD",
	COMMENT:     "COMMENT",
	STRING:      "STRING",
	PLACEHOLDER: "PLACEHOLDER",
	NUMBER:      "NUMBER",
	REPLACEMENT: "REPLACEMENT",
	BUILTIN:     "BUILTIN",
	IDENTIFIER:  "IDENTIFIER",
}

// String returns the string representation of the class
func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("Class(%d)", c)
}

// Symbol is one whitespace-delimited unit of a padded line. Lead is the
// whitespace that preceded it, kept so string contents survive splitting.
type Symbol struct {
	Text string
	Lead string
}

// multiCharOperators are kept whole by the padding pass, longest first.
var multiCharOperators = []string{
	"**=", "//=", ">>=", "<<=",
	"**", "//", "==", "!=", "<=", ">=", "->",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=", ":=",
	"<<", ">>",
}

// singleCharOperators are padded on both sides.
const singleCharOperators = ";:=+-*%^|/,{}[]()<>&~@"

var operatorSet = func() map[string]bool {
	set := make(map[string]bool, len(multiCharOperators)+len(singleCharOperators))
	for _, op := range multiCharOperators {
		set[op] = true
	}
	for i := 0; i < len(singleCharOperators); i++ {
		set[singleCharOperators[i:i+1]] = true
	}
	return set
}()

func init() {
	sort.SliceStable(multiCharOperators, func(i, j int) bool {
		return len(multiCharOperators[i]) > len(multiCharOperators[j])
	})
}

// IsOperator reports whether s is exactly one operator token.
func IsOperator(s string) bool {
	return operatorSet[s]
}

// matchOperator returns the operator at the start of s, or "".
func matchOperator(s string) string {
	for _, op := range multiCharOperators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	if s != "" && strings.IndexByte(singleCharOperators, s[0]) >= 0 {
		return s[:1]
	}
	return ""
}
