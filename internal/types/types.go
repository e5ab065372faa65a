package types

import (
	"encoding/json"
	"math"
	"time"
)

// Mood is the qualitative label attached to a week.
type Mood string

const (
	MoodExcellent Mood = "excellent"
	MoodGood      Mood = "good"
	MoodNeutral   Mood = "neutral"
	MoodPoor      Mood = "poor"
	MoodTerrible  Mood = "terrible"
)

// Moods lists every mood from best to worst.
var Moods = []Mood{MoodExcellent, MoodGood, MoodNeutral, MoodPoor, MoodTerrible}

// Valid reports whether m is one of the known moods.
func (m Mood) Valid() bool {
	for _, known := range Moods {
		if m == known {
			return true
		}
	}
	return false
}

// MoodFromScore maps an overall score onto a mood. The cutoffs are
// inclusive lower bounds: 8, 6, 4, 2.
func MoodFromScore(score float64) Mood {
	switch {
	case score >= 8:
		return MoodExcellent
	case score >= 6:
		return MoodGood
	case score >= 4:
		return MoodNeutral
	case score >= 2:
		return MoodPoor
	default:
		return MoodTerrible
	}
}

// RoundOne rounds v to one decimal place, halves away from zero.
func RoundOne(v float64) float64 {
	return math.Round(v*10) / 10
}

// WeeklyRating is one assessment for a calendar week.
type WeeklyRating struct {
	ID           string            `json:"id"`
	WeekNumber   int               `json:"weekNumber"`
	StartDate    time.Time         `json:"startDate"`
	EndDate      time.Time         `json:"endDate"`
	Ratings      map[string]int    `json:"ratings"`
	Notes        map[string]string `json:"notes"`
	Mood         Mood              `json:"mood"`
	KeyEvents    []string          `json:"keyEvents"`
	OverallScore float64           `json:"overallScore"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// WeeklyRatingData is the full rating store keyed by week id.
type WeeklyRatingData map[string]WeeklyRating

// MetricAverage is the mean score of one metric across all rated weeks.
type MetricAverage struct {
	MetricID string  `json:"metricId"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
}

// TrendPoint is one week in the contiguous trend series. AverageScore is nil
// for weeks without data.
type TrendPoint struct {
	WeekID       string    `json:"weekId"`
	WeekNumber   int       `json:"weekNumber"`
	StartDate    time.Time `json:"startDate"`
	HasData      bool      `json:"hasData"`
	AverageScore *float64  `json:"averageScore"`
}

// MonthlyScore accumulates overall scores per calendar month.
type MonthlyScore struct {
	Month   string  `json:"month"`
	Total   float64 `json:"total"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// WeekSummary identifies a week by id and score.
type WeekSummary struct {
	WeekID       string  `json:"weekId"`
	OverallScore float64 `json:"overallScore"`
	Mood         Mood    `json:"mood"`
}

// Analytics is derived from the rating store on demand.
type Analytics struct {
	TotalWeeks       int                      `json:"totalWeeks"`
	AverageScore     float64                  `json:"averageScore"`
	MetricAverages   map[string]MetricAverage `json:"metricAverages"`
	TrendsOverTime   []TrendPoint             `json:"trendsOverTime"`
	BestWeek         *WeekSummary             `json:"bestWeek"`
	WorstWeek        *WeekSummary             `json:"worstWeek"`
	MoodDistribution map[Mood]int             `json:"moodDistribution"`
	MonthlyScores    map[string]MonthlyScore  `json:"monthlyScores"`
}

// HypothesisStatus is the lifecycle state of a hypothesis.
type HypothesisStatus string

const (
	HypothesisDraft     HypothesisStatus = "draft"
	HypothesisActive    HypothesisStatus = "active"
	HypothesisCompleted HypothesisStatus = "completed"
	HypothesisAbandoned HypothesisStatus = "abandoned"
)

// HypothesisGoal names the metric a hypothesis is meant to move.
type HypothesisGoal struct {
	MetricID     string  `json:"metricId" validate:"required"`
	TargetValue  float64 `json:"targetValue" validate:"gte=1,lte=10"`
	CurrentValue float64 `json:"currentValue" validate:"gte=0,lte=10"`
}

// WeeklyProgress is one week's 0-4 self-assessment of a hypothesis.
type WeeklyProgress struct {
	WeekID string `json:"weekId" validate:"required"`
	Rating int    `json:"rating" validate:"gte=0,lte=4"`
	Note   string `json:"note,omitempty" validate:"max=500"`
}

// EnhancedHypothesis is an IF/THEN/BECAUSE behavior-change experiment.
type EnhancedHypothesis struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title" validate:"required,max=200"`
	Goal               HypothesisGoal   `json:"goal"`
	IfStatement        string           `json:"ifStatement" validate:"required,max=500"`
	ThenStatement      string           `json:"thenStatement" validate:"required,max=500"`
	BecauseStatement   string           `json:"becauseStatement" validate:"required,max=500"`
	Impact             int              `json:"impact" validate:"gte=1,lte=10"`
	Effort             int              `json:"effort" validate:"gte=1,lte=10"`
	Confidence         int              `json:"confidence" validate:"gte=1,lte=10"`
	Risk               int              `json:"risk" validate:"gte=1,lte=10"`
	Timeframe          int              `json:"timeframe" validate:"gte=1,lte=10"`
	CalculatedPriority float64          `json:"calculatedPriority"`
	Status             HypothesisStatus `json:"status" validate:"oneof=draft active completed abandoned"`
	WeeklyProgress     []WeeklyProgress `json:"weeklyProgress" validate:"dive"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// Insight is one AI-generated observation about the user's data.
type Insight struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Confidence  float64  `json:"confidence"`
	MetricIDs   []string `json:"metricIds,omitempty"`
}

// InsightSet is what gets persisted under the insights key.
type InsightSet struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Model       string    `json:"model"`
	Insights    []Insight `json:"insights"`
}

// Document is a schema-less JSON object: section or week id to raw value.
type Document map[string]json.RawMessage

// RatingsResponse is returned by GET /api/ratings.
type RatingsResponse struct {
	Ratings Document `json:"ratings"`
}

// RatingsWriteRequest is the body of POST /api/ratings.
type RatingsWriteRequest struct {
	Ratings json.RawMessage `json:"ratings"`
}

// RatingsWriteResponse is returned by POST /api/ratings.
type RatingsWriteResponse struct {
	Success bool     `json:"success"`
	Ratings Document `json:"ratings"`
}

// DeleteRequest is the optional body of DELETE /api/ratings.
type DeleteRequest struct {
	ID string `json:"id"`
}

// SyncRequest is the body of POST /api/sync.
type SyncRequest struct {
	Data json.RawMessage `json:"data"`
}

// SyncResponse is returned by GET /api/sync.
type SyncResponse struct {
	Success   bool     `json:"success"`
	Data      Document `json:"data"`
	Timestamp string   `json:"timestamp"`
}

// SyncWriteResponse is returned by POST /api/sync.
type SyncWriteResponse struct {
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

// SuccessResponse is the minimal acknowledgement envelope.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Storage string `json:"storage"`
}
