package models

import (
	"encoding/json"
	"testing"
)

func TestFitnessAnalyticsParsing(t *testing.T) {
	testJSON := `{
        "workoutMuscles": [{"muscle": "quadriceps", "count": 4}, {"muscle": "lower_back", "count": 1}],
        "workoutExercises": [{"exercise": "Squat", "count": 4}],
        "hours": [{"hour": 23, "count": 2}]
    }`

	var analytics FitnessAnalytics
	if err := json.Unmarshal([]byte(testJSON), &analytics); err != nil {
		t.Fatalf("Failed to parse fitness analytics JSON: %v", err)
	}

	if len(analytics.WorkoutMuscles) != 2 {
		t.Fatalf("Expected 2 muscles, got %d", len(analytics.WorkoutMuscles))
	}
	if analytics.WorkoutMuscles[1].Muscle != "lower_back" {
		t.Errorf("Expected lower_back, got %s", analytics.WorkoutMuscles[1].Muscle)
	}
	if analytics.Hours[0].Hour != 23 || analytics.Hours[0].Count != 2 {
		t.Errorf("Unexpected hour bucket %+v", analytics.Hours[0])
	}
}

func TestDailyUserActivitiesParsing(t *testing.T) {
	testJSON := `{
        "groupedBy": "MONTH",
        "totalCount": 12,
        "totalDuration": 340,
        "items": [{
            "day": "2024-03-01",
            "workoutCount": 3,
            "audioBookCount": 0,
            "totalCount": 3,
            "totalDuration": 95.5,
            "__typename": "DailyUserActivityItem"
        }]
    }`

	var activities DailyUserActivities
	if err := json.Unmarshal([]byte(testJSON), &activities); err != nil {
		t.Fatalf("Failed to parse daily activities JSON: %v", err)
	}

	if activities.GroupedBy != GroupedByMonth {
		t.Errorf("Expected MONTH, got %s", activities.GroupedBy)
	}
	if len(activities.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(activities.Items))
	}

	item := activities.Items[0]
	if item.Day != "2024-03-01" {
		t.Errorf("Expected day 2024-03-01, got %s", item.Day)
	}
	if item.Fields["workoutCount"] != 3 {
		t.Errorf("Expected workoutCount 3, got %v", item.Fields["workoutCount"])
	}
	if item.Fields["totalDuration"] != 95.5 {
		t.Errorf("Expected totalDuration 95.5, got %v", item.Fields["totalDuration"])
	}
	if _, ok := item.Fields["__typename"]; ok {
		t.Error("Non numeric fields should be skipped")
	}
	if _, ok := item.Fields["day"]; ok {
		t.Error("Day label should not be a numeric field")
	}
}

func TestDailyUserActivityItemRoundTrip(t *testing.T) {
	item := DailyUserActivityItem{Day: "2024-01-02", Fields: map[string]float64{"bookCount": 2}}

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Failed to marshal item: %v", err)
	}

	var decoded DailyUserActivityItem
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal item: %v", err)
	}
	if decoded.Day != item.Day || decoded.Fields["bookCount"] != 2 {
		t.Errorf("Round trip mismatch: %+v", decoded)
	}
}
