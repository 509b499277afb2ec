package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/era5-temperature-etl/internal/domain"
)

// ERA5-Land monthly aggregates begin in January 1950.
const firstDatasetYear = 1950

// loadStudy starts from the default study, overlays STUDY_FILE (YAML) when
// set, then applies REGION_ASSET, START_YEAR and END_YEAR.
func loadStudy() (domain.Study, error) {
	study := domain.DefaultStudy()

	if path := os.Getenv("STUDY_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Study{}, fmt.Errorf("read STUDY_FILE: %w", err)
		}
		if err := yaml.Unmarshal(data, &study); err != nil {
			return domain.Study{}, fmt.Errorf("parse STUDY_FILE %s: %w", path, err)
		}
	}

	if v := os.Getenv("REGION_ASSET"); v != "" {
		study.AssetID = v
	}
	for key, dst := range map[string]*int{"START_YEAR": &study.StartYear, "END_YEAR": &study.EndYear} {
		if s := os.Getenv(key); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return domain.Study{}, fmt.Errorf("invalid %s %q", key, s)
			}
			*dst = n
		}
	}

	if err := validateStudy(study); err != nil {
		return domain.Study{}, err
	}
	return study, nil
}

func validateStudy(s domain.Study) error {
	switch {
	case s.AssetID == "":
		return errors.New("REGION_ASSET must not be empty")
	case s.Dataset == "" || s.Band == "":
		return errors.New("study dataset and band are required")
	case s.StartYear < firstDatasetYear:
		return fmt.Errorf("START_YEAR %d precedes the dataset (%d)", s.StartYear, firstDatasetYear)
	case s.EndYear < s.StartYear:
		return fmt.Errorf("END_YEAR %d is before START_YEAR %d", s.EndYear, s.StartYear)
	case s.ScaleMeters <= 0:
		return errors.New("study scale_meters must be positive")
	case len(s.Visualization.Palette) == 0:
		return errors.New("study visualization palette is empty")
	case s.Visualization.Min >= s.Visualization.Max:
		return errors.New("study visualization min must be below max")
	}
	return nil
}
