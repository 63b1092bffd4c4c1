package query

import (
	"encoding/json"

	"github.com/fitdash/timespan"
)

const (
	FitnessAnalyticsName    = "analytics.fitness"
	DailyUserActivitiesName = "miscellaneous.dailyUserActivities"
)

// Key identifies one remote query with its arguments
type Key struct {
	Name string
	Args any
}

// String is the cache identity: the name followed by the JSON encoding of the
// arguments. encoding/json writes struct fields in declaration order and map
// keys sorted, so equal arguments give equal strings.
func (k Key) String() string {
	if k.Args == nil {
		return k.Name
	}
	data, err := json.Marshal(k.Args)
	if err != nil {
		return k.Name
	}
	return k.Name + string(data)
}

type fitnessArgs struct {
	Input timespan.DateRange `json:"input"`
}

// FitnessAnalyticsKey is the key for the fitness analytics of a date range
func FitnessAnalyticsKey(dr timespan.DateRange) Key {
	return Key{Name: FitnessAnalyticsName, Args: fitnessArgs{Input: dr}}
}

// DailyUserActivitiesKey is the key for the activity buckets of a date range
func DailyUserActivitiesKey(dr timespan.DateRange) Key {
	return Key{Name: DailyUserActivitiesName, Args: dr}
}
