package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/optiwatt/core/model"
)

// TaskFile describes a one-shot optimization request loaded from disk:
// the appliance list plus optional overrides for the background load and
// the capacity limit.
type TaskFile struct {
	Tasks     []TaskEntry `json:"tasks" yaml:"tasks"`
	BaseLoad  []float64   `json:"base_load" yaml:"base_load"`
	MaxLoadKW float64     `json:"max_load_kw" yaml:"max_load_kw"`
}

// TaskEntry mirrors model.ApplianceTask with serialization tags.
type TaskEntry struct {
	ID            string  `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	PowerKW       float64 `json:"power_kw" yaml:"power_kw"`
	DurationHours int     `json:"duration_hours" yaml:"duration_hours"`
	PreferredHour int     `json:"preferred_hour" yaml:"preferred_hour"`
}

// Task converts the entry to the engine type.
func (e TaskEntry) Task() model.ApplianceTask {
	return model.ApplianceTask{
		ID:            e.ID,
		Name:          e.Name,
		PowerKW:       e.PowerKW,
		DurationHours: e.DurationHours,
		PreferredHour: e.PreferredHour,
	}
}

// Profile returns the background profile for the request: the declared base
// load when 24 values are present, a flat fallback profile otherwise.
func (f TaskFile) Profile() model.HourlyProfile {
	if len(f.BaseLoad) == model.HoursPerDay {
		var p model.HourlyProfile
		copy(p[:], f.BaseLoad)
		return p
	}
	return model.FlatProfile(model.FallbackLoadKW)
}

// LoadTaskFile loads a TaskFile from a JSON or YAML file.
func LoadTaskFile(path string) (TaskFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return TaskFile{}, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var f TaskFile
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &f)
	case ".json":
		err = json.Unmarshal(b, &f)
	default:
		return TaskFile{}, fmt.Errorf("unsupported task file format: %s", ext)
	}
	return f, err
}

// DecodeTaskFile reads from r to decode a TaskFile.
func DecodeTaskFile(r io.Reader, format string) (TaskFile, error) {
	var f TaskFile
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&f); err != nil {
			return f, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&f); err != nil {
			return f, err
		}
	default:
		return f, fmt.Errorf("unsupported format: %s", format)
	}
	return f, nil
}
