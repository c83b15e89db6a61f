package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pyplyn/pyplyn/internal/model"
)

// Loader is the pluggable ConfigurationLoader of spec.md §6: a single
// load() -> Set<Configuration> operation.
type Loader interface {
	Load() (model.Set, error)
}

// YAMLLoader reads Configurations from a single YAML document at Path.
type YAMLLoader struct {
	Path string
}

// NewYAMLLoader constructs a Loader reading from path.
func NewYAMLLoader(path string) *YAMLLoader {
	return &YAMLLoader{Path: path}
}

// document is the on-disk shape: a flat list of configuration entries.
type document struct {
	Configurations []configurationDoc `yaml:"configurations"`
}

type configurationDoc struct {
	Disabled             bool          `yaml:"disabled"`
	RepeatIntervalMillis int64         `yaml:"repeatIntervalMillis"`
	Extracts             []extractDoc  `yaml:"extracts"`
	Transforms           []transformDoc `yaml:"transforms"`
	Loads                []loadDoc     `yaml:"loads"`
}

type extractDoc struct {
	Kind         string   `yaml:"kind"`
	EndpointID   string   `yaml:"endpointId"`
	Name         string   `yaml:"name"`
	FilteredName string   `yaml:"filteredName"`
	DefaultValue *float64 `yaml:"defaultValue"`
	CacheMillis  int64    `yaml:"cacheMillis"`
}

type transformDoc struct {
	Kind                   string  `yaml:"kind"`
	Threshold              float64 `yaml:"threshold"`
	Type                   string  `yaml:"type"`
	CriticalDurationMillis int64   `yaml:"criticalDurationMillis"`
	WarnDurationMillis     int64   `yaml:"warnDurationMillis"`
	InfoDurationMillis     int64   `yaml:"infoDurationMillis"`
	Name                   string  `yaml:"name"`
}

type loadDoc struct {
	Kind       string `yaml:"kind"`
	ID         string `yaml:"id"`
	EndpointID string `yaml:"endpointId"`
	Table      string `yaml:"table"`
}

// Load reads and converts the YAML document into a model.Set, keyed by
// structural identity per spec.md §3.
func (l *YAMLLoader) Load() (model.Set, error) {
	raw, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("config: read configurations %s: %w", l.Path, err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parse configurations %s: %w", l.Path, err)
	}

	cs := make([]model.Configuration, 0, len(doc.Configurations))
	for i, cd := range doc.Configurations {
		c, err := cd.toModel()
		if err != nil {
			return nil, fmt.Errorf("config: configuration[%d]: %w", i, err)
		}
		cs = append(cs, c)
	}

	return model.NewSet(cs), nil
}

func (cd configurationDoc) toModel() (model.Configuration, error) {
	extracts := make([]model.Extract, 0, len(cd.Extracts))
	for i, ed := range cd.Extracts {
		e, err := ed.toModel()
		if err != nil {
			return model.Configuration{}, fmt.Errorf("extracts[%d]: %w", i, err)
		}
		extracts = append(extracts, e)
	}

	transforms := make([]model.Transform, 0, len(cd.Transforms))
	for i, td := range cd.Transforms {
		tr, err := td.toModel()
		if err != nil {
			return model.Configuration{}, fmt.Errorf("transforms[%d]: %w", i, err)
		}
		transforms = append(transforms, tr)
	}

	loads := make([]model.Load, 0, len(cd.Loads))
	for i, ld := range cd.Loads {
		l, err := ld.toModel()
		if err != nil {
			return model.Configuration{}, fmt.Errorf("loads[%d]: %w", i, err)
		}
		loads = append(loads, l)
	}

	return model.Configuration{
		Extracts:             extracts,
		Transforms:           transforms,
		Loads:                loads,
		RepeatIntervalMillis: cd.RepeatIntervalMillis,
		Disabled:             cd.Disabled,
	}, nil
}

func (ed extractDoc) toModel() (model.Extract, error) {
	switch model.ExtractKind(ed.Kind) {
	case model.ExtractKindRefocus:
		return model.Extract{
			Kind: model.ExtractKindRefocus,
			Refocus: &model.RefocusExtract{
				EndpointID:   ed.EndpointID,
				Name:         ed.Name,
				FilteredName: ed.FilteredName,
				DefaultValue: ed.DefaultValue,
				CacheMillis:  ed.CacheMillis,
			},
		}, nil
	default:
		return model.Extract{}, fmt.Errorf("unknown extract kind %q", ed.Kind)
	}
}

func (td transformDoc) toModel() (model.Transform, error) {
	switch model.TransformKind(td.Kind) {
	case model.TransformKindLastDatapoint:
		return model.Transform{Kind: model.TransformKindLastDatapoint}, nil
	case model.TransformKindInfoStatus:
		return model.Transform{Kind: model.TransformKindInfoStatus}, nil
	case model.TransformKindThreshold:
		return model.Transform{
			Kind: model.TransformKindThreshold,
			Threshold: &model.ThresholdTransform{
				Threshold: td.Threshold,
				Type:      model.ThresholdType(td.Type),
			},
		}, nil
	case model.TransformKindThresholdMetForDuration:
		return model.Transform{
			Kind: model.TransformKindThresholdMetForDuration,
			ThresholdMetForDuration: &model.ThresholdMetForDurationTransform{
				Threshold:              td.Threshold,
				Type:                   model.ThresholdType(td.Type),
				CriticalDurationMillis: td.CriticalDurationMillis,
				WarnDurationMillis:     td.WarnDurationMillis,
				InfoDurationMillis:     td.InfoDurationMillis,
				Name:                   td.Name,
			},
		}, nil
	default:
		return model.Transform{}, fmt.Errorf("unknown transform kind %q", td.Kind)
	}
}

func (ld loadDoc) toModel() (model.Load, error) {
	switch model.LoadKind(ld.Kind) {
	case model.LoadKindPostgres:
		return model.Load{
			Kind: model.LoadKindPostgres,
			Postgres: &model.PostgresLoad{
				ID:         ld.ID,
				EndpointID: ld.EndpointID,
				Table:      ld.Table,
			},
		}, nil
	default:
		return model.Load{}, fmt.Errorf("unknown load kind %q", ld.Kind)
	}
}

var _ Loader = (*YAMLLoader)(nil)
