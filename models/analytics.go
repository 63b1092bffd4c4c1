package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FitnessAnalytics is the payload of the fitnessAnalytics query
type FitnessAnalytics struct {
	WorkoutMuscles   []WorkoutMuscle   `json:"workoutMuscles"`
	WorkoutExercises []WorkoutExercise `json:"workoutExercises"`
	Hours            []HourCount       `json:"hours"`
}

type WorkoutMuscle struct {
	Muscle string `json:"muscle"`
	Count  int    `json:"count"`
}

type WorkoutExercise struct {
	Exercise string `json:"exercise"`
	Count    int    `json:"count"`
}

// HourCount is a workout count for one UTC hour (0-23)
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// GroupedBy is the bucket granularity reported by dailyUserActivities
type GroupedBy string

const (
	GroupedByDay        GroupedBy = "DAY"
	GroupedByMonth      GroupedBy = "MONTH"
	GroupedByYear       GroupedBy = "YEAR"
	GroupedByMillennium GroupedBy = "MILLENNIUM"
)

// DailyUserActivities is the payload of the dailyUserActivities query
type DailyUserActivities struct {
	Items         []DailyUserActivityItem `json:"items"`
	GroupedBy     GroupedBy               `json:"groupedBy"`
	TotalCount    int64                   `json:"totalCount"`
	TotalDuration int64                   `json:"totalDuration"`
}

// DailyUserActivityItem is one bucket. Besides the day label every field is a
// named numeric count whose set depends on the backend version, so the fields
// are kept in a map.
type DailyUserActivityItem struct {
	Day    string
	Fields map[string]float64
}

// UnmarshalJSON implements custom unmarshalling for the open set of count fields.
func (d *DailyUserActivityItem) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Fields = make(map[string]float64, len(raw))
	for key, value := range raw {
		if key == "day" {
			if err := json.Unmarshal(value, &d.Day); err != nil {
				return fmt.Errorf("failed to parse day label: %w", err)
			}
			continue
		}
		var number json.Number
		if err := json.Unmarshal(value, &number); err != nil {
			// Non numeric fields (e.g. __typename) carry no series data.
			continue
		}
		f, err := strconv.ParseFloat(number.String(), 64)
		if err != nil {
			continue
		}
		d.Fields[key] = f
	}
	return nil
}

// MarshalJSON writes the item back in the flat wire shape.
func (d DailyUserActivityItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+1)
	for key, value := range d.Fields {
		out[key] = value
	}
	out["day"] = d.Day
	return json.Marshal(out)
}

// UserPreferences holds the subset of user preferences the dashboard reads
type UserPreferences struct {
	FeaturesEnabled FeaturesEnabled `json:"featuresEnabled"`
}

type FeaturesEnabled struct {
	Fitness FeatureToggle `json:"fitness"`
}

type FeatureToggle struct {
	Enabled bool `json:"enabled"`
}

// FitnessEnabled reports whether the fitness charts should be shown.
func (p UserPreferences) FitnessEnabled() bool {
	return p.FeaturesEnabled.Fitness.Enabled
}
