package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/liftsim/internal/experiment"
	"github.com/san-kum/liftsim/internal/physics"
)

type ExportData struct {
	Solver    string             `json:"solver"`
	Constants physics.Constants  `json:"constants"`
	Controls  physics.Controls   `json:"controls"`
	Result    *experiment.Result `json:"result"`
}

const (
	svgWidth  = 800
	svgHeight = 400
)

// Export writes data to path, choosing CSV, SVG or JSON by extension.
func Export(path string, data ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		err = WriteCSV(file, data.Result)
	case ".svg":
		_, err = io.WriteString(file, VolumeSVG(data.Result, svgWidth, svgHeight))
	default:
		err = WriteJSON(file, data)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return file.Close()
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteCSV writes one row per sample.
func WriteCSV(w io.Writer, res *experiment.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time_min", "volume_l", "status"}); err != nil {
		return err
	}
	for _, s := range res.Samples {
		row := []string{
			strconv.FormatFloat(s.Time, 'f', 2, 64),
			strconv.FormatFloat(s.Volume, 'f', 2, 64),
			s.Status,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
