package config

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	apperrors "github.com/agbru/integcalc/internal/errors"
)

// FileConfig holds the values read from a config file. Nil fields were not
// present in the file and leave the corresponding setting untouched.
type FileConfig struct {
	AbsErr        *float64 `yaml:"abs_err" toml:"abs_err"`
	RelErr        *float64 `yaml:"rel_err" toml:"rel_err"`
	Threads       *int     `yaml:"threads" toml:"threads"`
	XStart        *float64 `yaml:"x_start" toml:"x_start"`
	XEnd          *float64 `yaml:"x_end" toml:"x_end"`
	YStart        *float64 `yaml:"y_start" toml:"y_start"`
	YEnd          *float64 `yaml:"y_end" toml:"y_end"`
	InitSteps     *int     `yaml:"init_steps" toml:"init_steps"`
	MaxIter       *int     `yaml:"max_iter" toml:"max_iter"`
	Policy        *string  `yaml:"policy" toml:"policy"`
	OnInstability *string  `yaml:"on_instability" toml:"on_instability"`
}

// positionalKeys is the field order of the seven-number format.
var positionalKeys = []string{"abs_err", "rel_err", "threads", "x_start", "x_end", "y_start", "y_end"}

// LoadFile reads a config file. The format is chosen by extension: .yaml and
// .yml use YAML, .toml uses TOML. Any other file is plain text, either
// "key = value" lines or seven whitespace-separated numbers
// (abs_err rel_err threads x_start x_end y_start y_end).
//
// Parameters:
//   - path: The file to read.
//
// Returns:
//   - FileConfig: The values present in the file.
//   - error: An apperrors.ConfigError if the file is unreadable or malformed.
func LoadFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, apperrors.NewConfigError("reading config file: %v", err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil {
			return FileConfig{}, apperrors.NewConfigError("parsing %s: %v", path, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			return FileConfig{}, apperrors.NewConfigError("parsing %s: %v", path, err)
		}
	default:
		if err := parsePlain(data, &fc); err != nil {
			return FileConfig{}, apperrors.NewConfigError("parsing %s: %v", path, err)
		}
	}
	return fc, nil
}

func parsePlain(data []byte, fc *FileConfig) error {
	if bytes.ContainsRune(data, '=') {
		return parseKeyValue(data, fc)
	}
	return parsePositional(data, fc)
}

func parseKeyValue(data []byte, fc *FileConfig) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("line %d: expected key = value", lineNo)
		}
		if err := fc.set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return sc.Err()
}

func parsePositional(data []byte, fc *FileConfig) error {
	fields := strings.Fields(string(data))
	if len(fields) != len(positionalKeys) {
		return fmt.Errorf("expected %d values (%s), got %d",
			len(positionalKeys), strings.Join(positionalKeys, " "), len(fields))
	}
	for i, key := range positionalKeys {
		if err := fc.set(key, fields[i]); err != nil {
			return err
		}
	}
	return nil
}

func (fc *FileConfig) set(key, value string) error {
	parseFloat := func(dst **float64) error {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return apperrors.ValidationError{Field: key, Message: fmt.Sprintf("invalid number %q", value)}
		}
		*dst = &v
		return nil
	}
	parseInt := func(dst **int) error {
		v, err := strconv.Atoi(value)
		if err != nil {
			return apperrors.ValidationError{Field: key, Message: fmt.Sprintf("invalid integer %q", value)}
		}
		*dst = &v
		return nil
	}

	switch key {
	case "abs_err":
		return parseFloat(&fc.AbsErr)
	case "rel_err":
		return parseFloat(&fc.RelErr)
	case "threads":
		return parseInt(&fc.Threads)
	case "x_start":
		return parseFloat(&fc.XStart)
	case "x_end":
		return parseFloat(&fc.XEnd)
	case "y_start":
		return parseFloat(&fc.YStart)
	case "y_end":
		return parseFloat(&fc.YEnd)
	case "init_steps":
		return parseInt(&fc.InitSteps)
	case "max_iter":
		return parseInt(&fc.MaxIter)
	case "policy":
		fc.Policy = &value
	case "on_instability":
		fc.OnInstability = &value
	default:
		return apperrors.ValidationError{Field: key, Message: "unknown key"}
	}
	return nil
}

// applyTo copies the file values into c for settings whose flags were not
// given on the command line.
func (fc FileConfig) applyTo(c *AppConfig, fs *flag.FlagSet) {
	setF := func(v *float64, dst *float64, flags ...string) {
		if v != nil && !isFlagSetAny(fs, flags...) {
			*dst = *v
		}
	}
	setI := func(v *int, dst *int, flags ...string) {
		if v != nil && !isFlagSetAny(fs, flags...) {
			*dst = *v
		}
	}
	setS := func(v *string, dst *string, flags ...string) {
		if v != nil && !isFlagSetAny(fs, flags...) {
			*dst = *v
		}
	}

	setF(fc.AbsErr, &c.AbsTolerance, "abs-err")
	setF(fc.RelErr, &c.RelTolerance, "rel-err")
	setI(fc.Threads, &c.Workers, "workers", "threads")
	setF(fc.XStart, &c.XMin, "x-min")
	setF(fc.XEnd, &c.XMax, "x-max")
	setF(fc.YStart, &c.YMin, "y-min")
	setF(fc.YEnd, &c.YMax, "y-max")
	setI(fc.InitSteps, &c.InitialSteps, "init-steps")
	setI(fc.MaxIter, &c.MaxIterations, "max-iter")
	setS(fc.Policy, &c.Policy, "policy")
	setS(fc.OnInstability, &c.OnInstability, "on-instability")
}
