package service

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spigell/lead-scorer/internal/leads"
)

// ReportByIntent groups result rows by final intent as "name (score)".
func (r Run) ReportByIntent() map[leads.Intent][]string {
	report := make(map[leads.Intent][]string)
	for _, res := range r.Results {
		report[res.Intent] = append(report[res.Intent], fmt.Sprintf("%s (%d)", res.Name, res.Score))
	}
	return report
}

// WriteJSON writes the run as indented JSON.
func (r Run) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// DumpToTmpFile writes the results as CSV to a new temporary file and returns
// its name.
func (r Run) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "scored_leads_*.csv")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := leads.WriteCSV(file, r.Results); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// WriteFile writes the run to path. A .json extension selects JSON, anything
// else CSV.
func (r Run) WriteFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = r.WriteJSON(file)
	} else {
		err = leads.WriteCSV(file, r.Results)
	}
	if err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return file.Close()
}
