// Package loader reads the whitespace-delimited record files consumed by the
// graph builder: map, network and sample files. One record per line; blank
// lines and lines starting with '#' are skipped.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nvandessel/spread/internal/constants"
	"github.com/nvandessel/spread/internal/models"
)

// Inputs bundles the three record sets of one run.
type Inputs struct {
	Maps    []models.MapRecord
	Network []models.NetworkRecord
	Samples []models.SampleRecord
}

// LoadAll reads the map, network and sample files.
func LoadAll(mapPath, networkPath, samplePath string) (Inputs, error) {
	var in Inputs
	var err error
	if in.Maps, err = readFile(mapPath, ReadMap); err != nil {
		return Inputs{}, err
	}
	if in.Network, err = readFile(networkPath, ReadNetwork); err != nil {
		return Inputs{}, err
	}
	if in.Samples, err = readFile(samplePath, ReadSample); err != nil {
		return Inputs{}, err
	}
	return in, nil
}

// LoadMap reads a map file.
func LoadMap(path string) ([]models.MapRecord, error) { return readFile(path, ReadMap) }

// LoadNetwork reads a network file.
func LoadNetwork(path string) ([]models.NetworkRecord, error) { return readFile(path, ReadNetwork) }

// LoadSample reads a sample file.
func LoadSample(path string) ([]models.SampleRecord, error) { return readFile(path, ReadSample) }

// ReadMap parses map records: id x y area suitable_area, optionally followed
// by population, population density and road density.
func ReadMap(r io.Reader, name string) ([]models.MapRecord, error) {
	var out []models.MapRecord
	err := scan(r, name, func(ln int, f []string) error {
		if len(f) != constants.MapRecordFields && len(f) != constants.MapRecordFieldsWithCovariates {
			return fieldCountError(name, ln, len(f), constants.MapRecordFields, constants.MapRecordFieldsWithCovariates)
		}
		id, err := parseInt(name, ln, f[0])
		if err != nil {
			return err
		}
		nums, err := parseFloats(name, ln, f[1:])
		if err != nil {
			return err
		}
		rec := models.MapRecord{ID: id, X: nums[0], Y: nums[1], Area: nums[2], SuitableArea: nums[3]}
		if len(nums) == constants.MapRecordFieldsWithCovariates-1 {
			rec.HasCovariates = true
			rec.Population, rec.PopulationDensity, rec.RoadDensity = nums[4], nums[5], nums[6]
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// ReadNetwork parses network records: id1 id2 r1 .. r6. Either id may be
// constants.SinkID.
func ReadNetwork(r io.Reader, name string) ([]models.NetworkRecord, error) {
	var out []models.NetworkRecord
	err := scan(r, name, func(ln int, f []string) error {
		if len(f) != constants.NetworkRecordFields {
			return fieldCountError(name, ln, len(f), constants.NetworkRecordFields)
		}
		id1, err := parseInt(name, ln, f[0])
		if err != nil {
			return err
		}
		id2, err := parseInt(name, ln, f[1])
		if err != nil {
			return err
		}
		nums, err := parseFloats(name, ln, f[2:])
		if err != nil {
			return err
		}
		rec := models.NetworkRecord{ID1: id1, ID2: id2}
		copy(rec.Roads[:], nums)
		out = append(out, rec)
		return nil
	})
	return out, err
}

// ReadSample parses sample records: id y_obs n_obs.
func ReadSample(r io.Reader, name string) ([]models.SampleRecord, error) {
	var out []models.SampleRecord
	err := scan(r, name, func(ln int, f []string) error {
		if len(f) != constants.SampleRecordFields {
			return fieldCountError(name, ln, len(f), constants.SampleRecordFields)
		}
		id, err := parseInt(name, ln, f[0])
		if err != nil {
			return err
		}
		nums, err := parseFloats(name, ln, f[1:])
		if err != nil {
			return err
		}
		out = append(out, models.SampleRecord{ID: id, YObs: nums[0], NObs: nums[1]})
		return nil
	})
	return out, err
}

func readFile[T any](path string, read func(io.Reader, string) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return read(f, path)
}

// scan calls fn with the 1-based line number and fields of every record line.
func scan(r io.Reader, name string, fn func(line int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(ln, strings.Fields(line)); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

func parseInt(name string, ln int, s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		// Integer ids are sometimes written as "12.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("%s:%d: invalid id %q", name, ln, s)
		}
		v = int(f)
	}
	return v, nil
}

func parseFloats(name string, ln int, fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: field %d: invalid number %q", name, ln, i+2, s)
		}
		out[i] = v
	}
	return out, nil
}

func fieldCountError(name string, ln, got int, want ...int) error {
	ws := make([]string, len(want))
	for i, w := range want {
		ws[i] = strconv.Itoa(w)
	}
	return fmt.Errorf("%s:%d: got %d fields, want %s", name, ln, got, strings.Join(ws, " or "))
}
