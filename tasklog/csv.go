package tasklog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/warp/variable-pay/generic"
)

// Options configures ReadCSV.
type Options struct {
	Delimiter rune   // default ';'
	Charset   string // WHATWG label, e.g. "windows-1252"; empty = auto
}

// ReadCSV reads a delimited export. A missing header column or a malformed
// file is an InvalidInputError; a record that cannot become a row is
// reported in the result and does not stop the read.
func ReadCSV(r io.Reader, opts Options) (Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Result{}, eris.Wrap(err, "tasklog: read csv")
	}
	data, err := decode(raw, opts.Charset)
	if err != nil {
		return Result{}, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DefaultDelimiter
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return Result{}, &generic.InvalidInputError{Field: "file", Reason: "empty export"}
	}
	if err != nil {
		return Result{}, csvError(err)
	}

	var records []record
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, csvError(err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record{line: line, fields: fields})
	}
	return buildResult(header, records)
}

func csvError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &generic.InvalidInputError{Field: "file", Value: fmt.Sprintf("line %d", parseErr.Line), Reason: parseErr.Err.Error()}
	}
	return eris.Wrap(err, "tasklog: parse csv")
}

// ReadFile reads an export from disk, choosing the format by extension.
// Anything that is not .xlsx is read as CSV.
func ReadFile(path string, opts Options) (Result, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSXFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return Result{}, eris.Wrapf(err, "tasklog: open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, opts)
}
