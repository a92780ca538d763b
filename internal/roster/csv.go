package roster

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// ParseCSV reads a roster file with a header row. Columns name and email are
// required, password is optional; header matching is case-insensitive.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"name", "email"} {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := Row{
			Name:  rec[idx["name"]],
			Email: rec[idx["email"]],
		}
		if i, ok := idx["password"]; ok && i < len(rec) {
			row.Password = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
