// Package compressor packs a sparse row-major table of the parsing table. Identical rows are shared first,
// and then the unique rows are overlaid on a single array by row displacement.
package compressor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Table is a compressed table. A lookup of (row, col) reads the unique row RowNums[row], whose entries
// start at Displacement[RowNums[row]] of Entries. Bounds records the unique row owning each slot, and
// a slot owned by another row means an empty entry.
type Table struct {
	RowCount     int   `json:"row_count"`
	ColCount     int   `json:"col_count"`
	EmptyValue   int   `json:"empty_value"`
	RowNums      []int `json:"row_nums"`
	Displacement []int `json:"displacement"`
	Entries      []int `json:"entries"`
	Bounds       []int `json:"bounds"`
}

const noOwner = -1

// Compress compresses a table of `len(entries) / colCount` rows. Entries equal to emptyValue are
// dropped. The entries are left unchanged.
func Compress(entries []int, colCount int, emptyValue int) (*Table, error) {
	if colCount <= 0 {
		return nil, fmt.Errorf("column count must be >=1: %v", colCount)
	}
	if len(entries) == 0 || len(entries)%colCount != 0 {
		return nil, fmt.Errorf("entries length doesn't fit the column count; entries length: %v, column count: %v", len(entries), colCount)
	}
	rowCount := len(entries) / colCount

	rowNums, uniqueRows := dedupRows(entries, rowCount, colCount)
	disp, packed, bounds := displaceRows(uniqueRows, colCount, emptyValue)

	return &Table{
		RowCount:     rowCount,
		ColCount:     colCount,
		EmptyValue:   emptyValue,
		RowNums:      rowNums,
		Displacement: disp,
		Entries:      packed,
		Bounds:       bounds,
	}, nil
}

// Lookup returns the entry at (row, col) of the original table.
func (t *Table) Lookup(row, col int) (int, error) {
	if row < 0 || row >= t.RowCount || col < 0 || col >= t.ColCount {
		return t.EmptyValue, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	u := t.RowNums[row]
	pos := t.Displacement[u] + col
	if pos >= len(t.Entries) || t.Bounds[pos] != u {
		return t.EmptyValue, nil
	}
	return t.Entries[pos], nil
}

// Size returns the number of ints the compressed table holds.
func (t *Table) Size() int {
	return len(t.RowNums) + len(t.Displacement) + len(t.Entries) + len(t.Bounds)
}

func dedupRows(entries []int, rowCount, colCount int) ([]int, [][]int) {
	rowNums := make([]int, rowCount)
	var uniqueRows [][]int
	key2Num := map[string]int{}
	for row := 0; row < rowCount; row++ {
		r := entries[row*colCount : (row+1)*colCount]
		key := rowKey(r)
		num, ok := key2Num[key]
		if !ok {
			num = len(uniqueRows)
			key2Num[key] = num
			uniqueRows = append(uniqueRows, append([]int{}, r...))
		}
		rowNums[row] = num
	}
	return rowNums, uniqueRows
}

func rowKey(r []int) string {
	var b strings.Builder
	for _, v := range r {
		b.WriteString(strconv.Itoa(v))
		b.WriteByte(',')
	}
	return b.String()
}

// displaceRows places denser rows first, each at the lowest offset where its non-empty entries hit
// only free slots.
func displaceRows(rows [][]int, colCount int, emptyValue int) ([]int, []int, []int) {
	type rowCols struct {
		num  int
		cols []int
	}
	order := make([]rowCols, len(rows))
	for i, r := range rows {
		order[i].num = i
		for col, v := range r {
			if v != emptyValue {
				order[i].cols = append(order[i].cols, col)
			}
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return len(order[i].cols) > len(order[j].cols)
	})

	limit := len(rows) * colCount
	packed := make([]int, limit)
	bounds := make([]int, limit)
	for i := range packed {
		packed[i] = emptyValue
		bounds[i] = noOwner
	}

	disp := make([]int, len(rows))
	bottom := 0
	next := 0
	for _, r := range order {
		if len(r.cols) == 0 {
			continue
		}
		d := next
		for !fits(bounds, d, r.cols) {
			d++
		}
		disp[r.num] = d
		for _, col := range r.cols {
			packed[d+col] = rows[r.num][col]
			bounds[d+col] = r.num
		}
		if end := d + colCount; end > bottom {
			bottom = end
		}
		next = d + 1
	}

	return disp, packed[:bottom], bounds[:bottom]
}

func fits(bounds []int, d int, cols []int) bool {
	for _, col := range cols {
		if bounds[d+col] != noOwner {
			return false
		}
	}
	return true
}
