// Package table reads the reference table used to validate the integrator.
//
// The file is comma separated with one header line and the columns
//
//	normal_mean, normal_variance, family, y, dispersion, mean, variance
//
// where the first two describe the Gaussian message, dispersion carries the
// sign of the likelihood scaling, and the last two are the expected moments.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	liknorm "github.com/ieee0824/liknorm-go"
)

const numColumns = 7

// Row is one reference case.
type Row struct {
	Line           int // 1-based line in the source file
	NormalMean     float64
	NormalVariance float64
	Family         string
	Y              float64
	Dispersion     float64
	Mean           float64
	Variance       float64
}

// ExpFam builds the row's likelihood term.
func (r Row) ExpFam() (liknorm.ExpFam, error) {
	return liknorm.NewExpFam(r.Family, r.Y, r.Dispersion)
}

// Normal returns the row's Gaussian message in natural parameters.
func (r Row) Normal() liknorm.Normal {
	return liknorm.NormalFromMeanVar(r.NormalMean, r.NormalVariance)
}

// ReadFile reads a reference table from path.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	rows, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// Read parses a reference table. The first line is a header and is skipped.
func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty table")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read table: %w", err)
		}
		line, _ := cr.FieldPos(0)
		row, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row.Line = line
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(rec []string) (Row, error) {
	if len(rec) < numColumns {
		return Row{}, fmt.Errorf("want %d columns, got %d", numColumns, len(rec))
	}
	var nums [6]float64
	for i, col := range []int{0, 1, 3, 4, 5, 6} {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
		if err != nil {
			return Row{}, fmt.Errorf("column %d: %w", col+1, err)
		}
		nums[i] = v
	}
	return Row{
		NormalMean:     nums[0],
		NormalVariance: nums[1],
		Family:         strings.TrimSpace(rec[2]),
		Y:              nums[2],
		Dispersion:     nums[3],
		Mean:           nums[4],
		Variance:       nums[5],
	}, nil
}
