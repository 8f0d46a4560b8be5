package batch

import (
	"slices"

	"github.com/ZanzyTHEbar/glm-collator/collator/labeling"
)

// Padded is the rectangular output of a Padder.
type Padded struct {
	IDs    [][]int
	Labels [][]int
	Layout []Span
}

// Padder aligns variable-length rows into a rectangle. labels may be nil.
type Padder interface {
	Pad(ids, labels [][]int) Padded
}

// RightPadder pads every row on the right to the longest row plus one.
type RightPadder struct {
	PadID int
}

func (p RightPadder) Pad(ids, labels [][]int) Padded {
	longest := 0
	for _, row := range ids {
		longest = max(longest, len(row))
	}
	length := longest + 1

	out := Padded{
		IDs:    make([][]int, len(ids)),
		Layout: make([]Span, len(ids)),
	}
	for i, row := range ids {
		out.IDs[i] = padRight(row, length, p.PadID)
		out.Layout[i] = Span{Start: 0, End: len(row)}
	}
	if labels != nil {
		out.Labels = make([][]int, len(labels))
		for i, row := range labels {
			out.Labels[i] = padRight(row, length, labeling.IgnoreIndex)
		}
	}
	return out
}

// LeftPadder reverses every row, right-pads the reversed rows together and
// reverses them back, so the last token of every row is right-aligned. The
// padding length of a row is the number of pad ids in front of its first
// other token, which makes re-padding a padded batch a no-op. Labels
// are padded in the same pass as ids so both share one length; label
// positions holding the pad id are then mapped to IgnoreIndex.
type LeftPadder struct {
	PadID int
}

func (p LeftPadder) Pad(ids, labels [][]int) Padded {
	rows := make([][]int, 0, len(ids)+len(labels))
	for _, row := range ids {
		rows = append(rows, reversed(row))
	}
	for _, row := range labels {
		rows = append(rows, reversed(row))
	}

	padded := PadSequences(rows, p.PadID)
	for _, row := range padded {
		slices.Reverse(row)
	}

	out := Padded{
		IDs:    padded[:len(ids):len(ids)],
		Layout: make([]Span, len(ids)),
	}
	for i, row := range out.IDs {
		out.Layout[i] = Span{Start: leadingPads(row, p.PadID), End: len(row)}
	}
	if labels != nil {
		out.Labels = padded[len(ids):]
		for _, row := range out.Labels {
			for t, v := range row {
				if v == p.PadID {
					row[t] = labeling.IgnoreIndex
				}
			}
		}
	}
	return out
}

// leadingPads counts the pad ids in front of the first real token.
func leadingPads(row []int, padID int) int {
	for t, v := range row {
		if v != padID {
			return t
		}
	}
	return len(row)
}

// PadSequences right-pads copies of seqs to the longest one with value.
func PadSequences(seqs [][]int, value int) [][]int {
	longest := 0
	for _, s := range seqs {
		longest = max(longest, len(s))
	}
	out := make([][]int, len(seqs))
	for i, s := range seqs {
		out[i] = padRight(s, longest, value)
	}
	return out
}

func padRight(row []int, length, value int) []int {
	out := make([]int, length)
	n := copy(out, row)
	for t := n; t < length; t++ {
		out[t] = value
	}
	return out
}

func reversed(row []int) []int {
	out := slices.Clone(row)
	slices.Reverse(out)
	return out
}
