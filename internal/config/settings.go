package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/andrewoneill45-ctrl/school-profile/internal/domain"
	"github.com/andrewoneill45-ctrl/school-profile/internal/etl"
	"github.com/andrewoneill45-ctrl/school-profile/internal/etl/sources"
)

// ─────────────────────────────────────────────────────────────
// Merge settings
// ─────────────────────────────────────────────────────────────
//
// Defaults are fixed. An optional YAML file at SettingsPath overrides
// any of them; fields left out of the file keep their default.

// Trigger selects how often the merge runs.
type Trigger string

const (
	TriggerManual    Trigger = "manual"     // run once and exit
	TriggerFileWatch Trigger = "file_watch" // re-run when an export changes
	TriggerSchedule  Trigger = "schedule"   // re-run on a cron expression
)

// DatasetSettings locates one performance export. URL, when set, takes
// precedence over Path and the export is downloaded on every run.
type DatasetSettings struct {
	Path      string `yaml:"path"`
	URL       string `yaml:"url"`
	Delimiter string `yaml:"delimiter"`
}

// Settings is the full run configuration.
type Settings struct {
	SchoolsPath string          `yaml:"schools_path"`
	OutputPath  string          `yaml:"output_path"`
	KS4         DatasetSettings `yaml:"ks4"`
	KS2         DatasetSettings `yaml:"ks2"`
	History     bool            `yaml:"history"`
	HistoryPath string          `yaml:"history_path"`
	Trigger     Trigger         `yaml:"trigger"`
	Schedule    string          `yaml:"schedule"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		SchoolsPath: "~/school-profile/src/schools.json",
		KS4:         DatasetSettings{Path: "~/Desktop/england_ks4revised.csv", Delimiter: ","},
		KS2:         DatasetSettings{Path: "~/Desktop/england_ks2revised.csv", Delimiter: ","},
		History:     false,
		HistoryPath: "~/.local/share/school-profile/merge.db",
		Trigger:     TriggerManual,
	}
}

// SettingsPath is the fixed location of the optional settings file.
func SettingsPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "school-profile", "merge.yaml")
}

// Load returns the defaults overlaid with the file at path, if it exists.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s.resolved()
	}
	if err != nil {
		return Settings{}, errors.Wrap(err, "read settings")
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, errors.Wrapf(err, "parse settings %s", path)
	}
	return s.resolved()
}

func (s Settings) resolved() (Settings, error) {
	if s.Trigger == "" {
		s.Trigger = TriggerManual
	}
	if s.OutputPath == "" {
		s.OutputPath = s.SchoolsPath
	}
	s.SchoolsPath = ExpandHome(s.SchoolsPath)
	s.OutputPath = ExpandHome(s.OutputPath)
	s.KS4.Path = ExpandHome(s.KS4.Path)
	s.KS2.Path = ExpandHome(s.KS2.Path)
	s.HistoryPath = ExpandHome(s.HistoryPath)
	return s, s.Validate()
}

// Validate checks that the settings describe a runnable merge.
func (s Settings) Validate() error {
	if s.SchoolsPath == "" {
		return errors.New("settings: schools_path is required")
	}
	if !s.KS4.located() || !s.KS2.located() {
		return errors.New("settings: ks4 and ks2 need a path or url")
	}
	if s.History && s.HistoryPath == "" {
		return errors.New("settings: history_path is required when history is enabled")
	}
	switch s.Trigger {
	case TriggerManual, TriggerFileWatch:
	case TriggerSchedule:
		if strings.TrimSpace(s.Schedule) == "" {
			return errors.New("settings: schedule is required for the schedule trigger")
		}
	default:
		return errors.Newf("settings: unknown trigger %q", s.Trigger)
	}
	return nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
}

func (d DatasetSettings) located() bool {
	return d.Path != "" || d.URL != ""
}

// SourcePaths returns the local export files the merge reads. Downloaded
// exports are not included.
func (s Settings) SourcePaths() []string {
	var paths []string
	for _, d := range []DatasetSettings{s.KS4, s.KS2} {
		if d.URL == "" {
			paths = append(paths, d.Path)
		}
	}
	return paths
}

// Job builds the merge job these settings describe.
func (s Settings) Job() *etl.Job {
	return &etl.Job{
		Collection: &sources.JSONFile{
			Path:       s.SchoolsPath,
			OutputPath: s.OutputPath,
			IDField:    domain.IdentifierField,
		},
		Sources: []etl.DatasetSource{
			csvDataset(domain.KS4(), s.KS4),
			csvDataset(domain.KS2(), s.KS2),
		},
		ReportFields: domain.DefaultReportFields(),
	}
}

func csvDataset(ds domain.Dataset, cfg DatasetSettings) etl.DatasetSource {
	delim := cfg.Delimiter
	if delim == "" {
		delim = ","
	}
	if cfg.URL != "" {
		return etl.DatasetSource{
			Dataset:    ds,
			SourceType: sources.CSVURLType,
			SourceCfg: etl.SourceConfig{
				"url":       cfg.URL,
				"delimiter": delim,
			},
		}
	}
	return etl.DatasetSource{
		Dataset:    ds,
		SourceType: sources.CSVFileType,
		SourceCfg: etl.SourceConfig{
			"filePath":  cfg.Path,
			"delimiter": delim,
		},
	}
}
