package commands

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cubesim/cubesim-go/pkg/log"
)

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	// Determine output writer
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

var csvHeader = []string{"time_us", "ticks", "run_id", "category", "dest", "cube", "retry", "tx", "ack", "reply", "report", "detail"}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		if err := cw.Write(csvRow(event)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return cw.Error()
}

func csvRow(event log.Event) []string {
	row := make([]string, len(csvHeader))
	row[0] = strconv.FormatInt(event.Time.Microseconds(), 10)
	row[1] = strconv.FormatUint(event.Ticks, 10)
	row[2] = event.RunID
	row[3] = event.Category.String()

	switch {
	case event.Attempt != nil:
		at := event.Attempt
		row[4] = at.Address().String()
		if at.Cube != nil {
			row[5] = strconv.Itoa(*at.Cube)
		}
		row[6] = strconv.Itoa(int(at.Retry))
		row[7] = hex.EncodeToString(at.TX)
		row[8] = strconv.FormatBool(at.Ack)
		row[9] = hex.EncodeToString(at.Reply)
		if at.Report != log.ReportNone {
			row[10] = at.Report.String()
		}
	case event.StateChange != nil:
		row[11] = event.StateChange.OldState + " -> " + event.StateChange.NewState
	case event.Install != nil:
		if event.Install.Error != "" {
			row[11] = event.Install.Path + ": " + event.Install.Error
		} else {
			row[11] = event.Install.Path + ": " + event.Install.Digest
		}
	}
	return row
}
