package compensation

import (
	"strings"
	"time"

	"github.com/warp/variable-pay/generic"
)

// =============================================================================
// TASK VALIDATOR
// =============================================================================

const (
	// ExportTimestampLayout is the strict layout of the export timestamps.
	// Fractional seconds after the seconds field are accepted by time.Parse.
	ExportTimestampLayout = "02/01/2006 15:04:05"
	exportDateLayout      = "02/01/2006"

	// MinHandlingTime is the exclusive lower bound on the time between
	// association and alteration for a task to count as valid.
	MinHandlingTime = 15 * time.Second
)

// TaskCount is the outcome of validating the task rows of one operator-day.
//
// Valid is the figure that feeds compensation. The other counters are
// diagnostics for display.
type TaskCount struct {
	Valid        int
	Invalid      int            // includes Unparsable
	Unparsable   int            // rows with a timestamp failing strict parsing
	Total        int            // Valid + Invalid
	Unattributed int            // operator rows whose day could not be read
	ValidByType  map[string]int // valid rows keyed by Status
}

// ParseExportTimestamp parses an export timestamp in loc.
func ParseExportTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(ExportTimestampLayout, strings.TrimSpace(s), loc)
}

// CountValidTasks counts the valid rows of operator on day.
//
// A row belongs to the operator when User equals operator exactly (case
// sensitive). It belongs to day when the calendar date of LastAssociatedAt,
// read in loc, is day. It is valid when AlteredAt is more than
// MinHandlingTime after LastAssociatedAt.
//
// Rows with a timestamp that fails strict parsing are invalid. If the
// association timestamp is unparsable its leading DD/MM/YYYY still decides
// the day; when even that fails the row is only counted as Unattributed.
func CountValidTasks(rows []TaskLogRow, operator string, day generic.TimePoint, loc *time.Location) TaskCount {
	if loc == nil {
		loc = time.Local
	}
	count := TaskCount{ValidByType: make(map[string]int)}

	for _, row := range rows {
		if row.User != operator {
			continue
		}

		associated, assocErr := ParseExportTimestamp(row.LastAssociatedAt, loc)
		var rowDay generic.TimePoint
		if assocErr == nil {
			rowDay = generic.DayOf(associated)
		} else {
			d, ok := exportDay(row.LastAssociatedAt, loc)
			if !ok {
				count.Unattributed++
				continue
			}
			rowDay = d
		}
		if !rowDay.Equal(day) {
			continue
		}

		count.Total++
		altered, alteredErr := ParseExportTimestamp(row.AlteredAt, loc)
		if assocErr != nil || alteredErr != nil {
			count.Unparsable++
			count.Invalid++
			continue
		}

		if altered.Sub(associated) > MinHandlingTime {
			count.Valid++
			count.ValidByType[row.Status]++
		} else {
			count.Invalid++
		}
	}
	return count
}

// exportDay reads only the DD/MM/YYYY prefix of an export timestamp.
func exportDay(s string, loc *time.Location) (generic.TimePoint, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return generic.TimePoint{}, false
	}
	t, err := time.ParseInLocation(exportDateLayout, fields[0], loc)
	if err != nil {
		return generic.TimePoint{}, false
	}
	return generic.DayOf(t), true
}
