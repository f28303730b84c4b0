package codec

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"subway/internal/domain"
)

const (
	stationsSheet = "stations"
	sectionsSheet = "sections"
)

var sectionsHeader = []string{"Line", "Color", "Up", "Down", "Distance"}

// XLSXCodec reads and writes a two-sheet workbook: "stations" holds one
// name per row, "sections" holds one section per row in path order.
type XLSXCodec struct{}

// NewXLSXCodec creates a new spreadsheet codec
func NewXLSXCodec() *XLSXCodec {
	return &XLSXCodec{}
}

// Format returns the codec format identifier
func (c *XLSXCodec) Format() string {
	return "xlsx"
}

// ContentType returns the HTTP media type
func (c *XLSXCodec) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Export writes the fragment as a workbook
func (c *XLSXCodec) Export(fragment *domain.NetworkFragment, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", stationsSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(sectionsSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	_ = f.SetCellValue(stationsSheet, "A1", "Station")
	for i, name := range fragment.Stations {
		_ = f.SetCellValue(stationsSheet, fmt.Sprintf("A%d", i+2), name)
	}

	for col, title := range sectionsHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sectionsSheet, cell, title)
	}
	row := 2
	for _, line := range fragment.Lines {
		for _, s := range line.Sections {
			_ = f.SetCellValue(sectionsSheet, fmt.Sprintf("A%d", row), line.Name)
			_ = f.SetCellValue(sectionsSheet, fmt.Sprintf("B%d", row), line.Color)
			_ = f.SetCellValue(sectionsSheet, fmt.Sprintf("C%d", row), s.Up)
			_ = f.SetCellValue(sectionsSheet, fmt.Sprintf("D%d", row), s.Down)
			_ = f.SetCellValue(sectionsSheet, fmt.Sprintf("E%d", row), s.Distance)
			row++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Parse reads a workbook written by Export. Rows of one line must share a
// color; the stations sheet is optional.
func (c *XLSXCodec) Parse(r io.Reader) (*domain.NetworkFragment, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	fragment := domain.NewNetworkFragment()

	if idx, _ := f.GetSheetIndex(stationsSheet); idx >= 0 {
		rows, err := f.GetRows(stationsSheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s sheet: %w", stationsSheet, err)
		}
		for i, cols := range rows {
			if i == 0 || len(cols) == 0 {
				continue
			}
			fragment.AddStation(strings.TrimSpace(cols[0]))
		}
	}

	rows, err := f.GetRows(sectionsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", sectionsSheet, err)
	}

	byName := make(map[string]int)
	for i, cols := range rows {
		if i == 0 || len(cols) == 0 {
			continue
		}
		if len(cols) < len(sectionsHeader) {
			return nil, fmt.Errorf("%s row %d: expected %d columns, got %d", sectionsSheet, i+1, len(sectionsHeader), len(cols))
		}
		distance, err := strconv.Atoi(strings.TrimSpace(cols[4]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid distance %q", sectionsSheet, i+1, cols[4])
		}

		name, color := strings.TrimSpace(cols[0]), strings.TrimSpace(cols[1])
		idx, ok := byName[name]
		if !ok {
			fragment.AddLine(domain.FragmentLine{Name: name, Color: color})
			idx = len(fragment.Lines) - 1
			byName[name] = idx
		} else if fragment.Lines[idx].Color != color {
			return nil, fmt.Errorf("%s row %d: line %q has conflicting colors", sectionsSheet, i+1, name)
		}

		fragment.Lines[idx].Sections = append(fragment.Lines[idx].Sections, domain.FragmentSection{
			Up:       strings.TrimSpace(cols[2]),
			Down:     strings.TrimSpace(cols[3]),
			Distance: distance,
		})
	}

	return fragment, nil
}
