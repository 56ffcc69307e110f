package rpyparser

// Block is a logical line plus its indented children.
type Block struct {
	Loc  Loc
	Text string
	Sub  []Block
}

// depthSplit separates a logical line's leading indentation from its text.
func depthSplit(s string) (int, string) {
	depth := 0
	for depth < len(s) && s[depth] == ' ' {
		depth++
	}
	return depth, s[depth:]
}

func groupCore(lines []LogicalLine, i, minDepth int) ([]Block, int, error) {
	var result []Block
	depth := -1

	for i < len(lines) {
		loc := lines[i].Loc
		lineDepth, rest := depthSplit(lines[i].Text)

		if lineDepth < minDepth {
			break
		}

		if depth < 0 {
			depth = lineDepth
		}

		if depth != lineDepth {
			return nil, 0, indentErrorf(loc, "indentation mismatch")
		}

		i++

		sub, next, err := groupCore(lines, i, depth+1)
		if err != nil {
			return nil, 0, err
		}
		i = next

		result = append(result, Block{Loc: loc, Text: rest, Sub: sub})
	}

	return result, i, nil
}

// GroupLogicalLines nests logical lines into blocks by indentation depth.
// The first line must be unindented and all siblings of one block must share
// exactly one depth.
func GroupLogicalLines(lines []LogicalLine) ([]Block, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	depth, _ := depthSplit(lines[0].Text)
	if depth != 0 {
		return nil, indentErrorf(lines[0].Loc, "unexpected indentation at start of file")
	}

	blocks, _, err := groupCore(lines, 0, 0)
	return blocks, err
}
