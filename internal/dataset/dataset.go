// Package dataset loads the static agenda document.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"

	appLog "confagenda/internal/log"
	"confagenda/internal/model"
)

// Load reads and parses the agenda document at path.
func Load(path string) (*model.Dataset, error) {
	if path == "" {
		return nil, errors.New("dataset path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	appLog.Info("dataset loaded",
		"path", path,
		"conference", ds.Conference.Name,
		"common_days", ds.CommonSessions.Len(),
		"groups", ds.BreakoutGroups.Len(),
		"speakers", len(ds.Speakers),
		"rooms", len(ds.Rooms),
	)
	return ds, nil
}

// Parse decodes an agenda document. Comments and trailing commas are
// tolerated. Older documents name the group mapping "regions"; it is used
// when "breakoutGroups" is absent.
func Parse(data []byte) (*model.Dataset, error) {
	clean := jsonc.ToJSON(data)
	if !gjson.ValidBytes(clean) {
		return nil, errors.New("invalid JSON")
	}

	var ds model.Dataset
	if err := json.Unmarshal(clean, &ds); err != nil {
		return nil, err
	}

	if !gjson.GetBytes(clean, "breakoutGroups").Exists() {
		if regions := gjson.GetBytes(clean, "regions"); regions.Exists() {
			if err := json.Unmarshal([]byte(regions.Raw), &ds.BreakoutGroups); err != nil {
				return nil, fmt.Errorf("regions: %w", err)
			}
		}
	}

	return &ds, nil
}
