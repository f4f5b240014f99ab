/*
Package tasklog reads the work-order export of the warehouse management
system into compensation.TaskLogRow values.

PURPOSE:
  This is the ingestion boundary for task-counted pay. It turns a CSV or
  XLSX file into rows the task validator can classify. It does not judge
  timestamps: those stay as text so the validator can count unparsable
  ones instead of losing them here.

FORMAT:
  - CSV delimited by ';' (configurable), first record is the header
  - XLSX, first sheet, first row is the header
  - Required columns: Usuário, Data de Alteração, Data Última Associação,
    Data de Criação
  - Optional column: Status (or Situação)
  - Header names match case-insensitively after NFC canonicalization

ENCODING:
  Exports saved by spreadsheet tools on Windows arrive as Windows-1252.
  Input that is not valid UTF-8 is decoded as Windows-1252 unless a
  charset is given explicitly. A UTF-8 BOM is dropped.

SEE ALSO:
  - compensation/tasks.go: CountValidTasks consumes the rows
  - generic/text.go: Canonical
*/
package tasklog

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/warp/variable-pay/compensation"
	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// COLUMNS
// =============================================================================

const (
	ColumnUser             = "Usuário"
	ColumnAlteredAt        = "Data de Alteração"
	ColumnLastAssociatedAt = "Data Última Associação"
	ColumnCreatedAt        = "Data de Criação"
	ColumnStatus           = "Status"
	ColumnStatusAlt        = "Situação"
)

// DefaultDelimiter is the field separator of the CSV export.
const DefaultDelimiter = ';'

var requiredColumns = []string{ColumnUser, ColumnAlteredAt, ColumnLastAssociatedAt, ColumnCreatedAt}

type columns struct {
	user, altered, associated, created int
	status                             int // -1 when absent
}

func locateColumns(header []string) (columns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(generic.Canonical(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	find := func(name string) int {
		if i, ok := index[strings.ToLower(generic.Canonical(name))]; ok {
			return i
		}
		return -1
	}

	var missing []string
	for _, name := range requiredColumns {
		if find(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return columns{}, &generic.InvalidInputError{
			Field:  "header",
			Value:  strings.Join(missing, ", "),
			Reason: "missing required column(s)",
		}
	}

	status := find(ColumnStatus)
	if status < 0 {
		status = find(ColumnStatusAlt)
	}
	return columns{
		user:       find(ColumnUser),
		altered:    find(ColumnAlteredAt),
		associated: find(ColumnLastAssociatedAt),
		created:    find(ColumnCreatedAt),
		status:     status,
	}, nil
}

// width is the number of fields a record needs to carry every required column.
func (c columns) width() int {
	w := 0
	for _, i := range []int{c.user, c.altered, c.associated, c.created} {
		if i+1 > w {
			w = i + 1
		}
	}
	return w
}

// =============================================================================
// OUTCOMES
// =============================================================================

// ParseOutcome is the result of reading one data record. Err is set when
// the record could not become a row; Row is then partial.
type ParseOutcome struct {
	Line int
	Row  compensation.TaskLogRow
	Err  error
}

// Result holds one outcome per non-blank data record, in file order.
type Result struct {
	Outcomes []ParseOutcome
}

// Rows returns the successfully read rows.
func (r Result) Rows() []compensation.TaskLogRow {
	rows := make([]compensation.TaskLogRow, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Err == nil {
			rows = append(rows, o.Row)
		}
	}
	return rows
}

// Skipped returns the outcomes that did not produce a row.
func (r Result) Skipped() []ParseOutcome {
	var skipped []ParseOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			skipped = append(skipped, o)
		}
	}
	return skipped
}

// record is one raw data record and the source line it came from.
type record struct {
	line   int
	fields []string
}

func buildResult(header []string, records []record) (Result, error) {
	cols, err := locateColumns(header)
	if err != nil {
		return Result{}, err
	}
	width := cols.width()

	result := Result{Outcomes: make([]ParseOutcome, 0, len(records))}
	for _, rec := range records {
		if blank(rec.fields) {
			continue
		}
		result.Outcomes = append(result.Outcomes, toOutcome(cols, width, rec))
	}
	return result, nil
}

func toOutcome(cols columns, width int, rec record) ParseOutcome {
	field := func(i int) string {
		if i < 0 || i >= len(rec.fields) {
			return ""
		}
		return generic.Canonical(rec.fields[i])
	}

	row := compensation.TaskLogRow{
		Line:             rec.line,
		User:             field(cols.user),
		CreatedAt:        field(cols.created),
		LastAssociatedAt: field(cols.associated),
		AlteredAt:        field(cols.altered),
		Status:           field(cols.status),
	}
	outcome := ParseOutcome{Line: rec.line, Row: row}

	switch {
	case len(rec.fields) < width:
		outcome.Err = &generic.InvalidInputError{Field: "record", Reason: "fewer columns than the header"}
	case row.User == "":
		outcome.Err = &generic.InvalidInputError{Field: ColumnUser, Reason: "empty"}
	}
	return outcome
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// CHARSET
// =============================================================================

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode converts data to UTF-8. An empty charset means auto-detect
// between UTF-8 and Windows-1252.
func decode(data []byte, charset string) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if charset == "" {
		if utf8.Valid(data) {
			return data, nil
		}
		out, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, eris.Wrap(err, "tasklog: decode windows-1252")
		}
		return out, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, &generic.InvalidInputError{Field: "charset", Value: charset, Reason: "unsupported"}
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, eris.Wrapf(err, "tasklog: decode %s", charset)
	}
	return bytes.TrimPrefix(out, utf8BOM), nil
}
