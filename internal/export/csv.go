// Package export serializes leads to CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/leadbox/leadbox/internal/model"
)

// ErrNoData is returned when there are no leads to export.
var ErrNoData = errors.New("no data available")

// TimeFormat is the layout used for the Created At column.
const TimeFormat = "2006-01-02 15:04:05"

// Header is the first row of every export.
var Header = []string{"ID", "Name", "Phone", "Message", "Status", "Created At"}

// Write encodes leads as CSV to w, preserving their order. It writes nothing
// and returns ErrNoData when leads is empty.
func Write(w io.Writer, leads []model.Lead) error {
	if len(leads) == 0 {
		return ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range leads {
		row := []string{
			strconv.FormatInt(l.ID, 10),
			l.Name,
			l.Phone,
			l.Message,
			string(l.Status),
			l.CreatedAt.UTC().Format(TimeFormat),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", l.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV returns leads encoded as a CSV document.
func CSV(leads []model.Lead) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, leads); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename returns the download name for an export taken at t.
func Filename(t time.Time) string {
	return "leads_backup_" + t.UTC().Format("20060102_150405") + ".csv"
}
