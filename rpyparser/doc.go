// Package rpyparser implements a parser for the Ren'Py visual novel
// scripting language.
//
// A script file is a tree of statements structured by indentation, with
// logical lines that may span several physical lines inside brackets or
// strings. The parser is structured as a hand-rolled recursive-descent
// parser with four layers:
//
//   - Logical lines: splits raw text into (file, line, text) triples,
//     handling comments, continuations, strings and bracket nesting.
//   - Blocks: groups logical lines into an indentation tree.
//   - Lexer: a backtracking cursor over that tree with matchers for
//     words, strings, expressions and embedded host-language code.
//   - Grammars: one parse function per statement, dispatched through a
//     keyword trie, building the AST ([]Node).
//
// Usage:
//
//	nodes, err := rpyparser.Parse("script.rpy", src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, n := range nodes {
//	    fmt.Println(n.Position())
//	}
//
// Files named *_ren.py hold script embedded in host-language comments
// and are converted before parsing.
package rpyparser
