package app

import (
	"sort"
	"strconv"

	"APKBackup/internal/report"
	"APKBackup/internal/ui"
)

// Summary counts the outcomes of a run.
type Summary struct {
	Apps     int
	Releases int
	Download map[string]int
	Upload   map[string]int
}

func newSummary() Summary {
	return Summary{
		Download: make(map[string]int),
		Upload:   make(map[string]int),
	}
}

func (s *Summary) add(row report.Row) {
	s.Releases++
	s.Download[row.DownloadStatus]++
	s.Upload[row.UploadStatus]++
}

// Failures is the number of releases whose download or upload failed.
func (s Summary) Failures() int {
	if s.Download["Failed"] > s.Upload["Failed"] {
		return s.Download["Failed"]
	}
	return s.Upload["Failed"]
}

// Rows renders the summary as table rows sorted by phase and status.
func (s Summary) Rows() [][]string {
	rows := [][]string{
		{"Apps", "-", strconv.Itoa(s.Apps)},
		{"Releases", "-", strconv.Itoa(s.Releases)},
	}
	rows = append(rows, countRows("Download", s.Download)...)
	rows = append(rows, countRows("Upload", s.Upload)...)
	return rows
}

// Print writes the summary table through p.
func (s Summary) Print(p *ui.Printer) {
	if p == nil {
		return
	}
	p.PrintTable("Backup summary", []string{"Phase", "Status", "Count"}, s.Rows())
}

func countRows(phase string, counts map[string]int) [][]string {
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		rows = append(rows, []string{phase, status, strconv.Itoa(counts[status])})
	}
	return rows
}
