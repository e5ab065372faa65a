package ratings

import (
	"github.com/hyperengineering/lifequality/internal/types"
)

// ComputeAnalytics derives summary statistics from the current store.
// It does not mutate the store.
func (s *Store) ComputeAnalytics() types.Analytics {
	s.mu.Lock()
	weeks := s.sortedLocked()
	cal := s.cal
	s.mu.Unlock()

	return Compute(cal, weeks)
}

// Compute derives analytics from weeks, which must be sorted by start date.
func Compute(cal Calendar, weeks []types.WeeklyRating) types.Analytics {
	a := types.Analytics{
		TotalWeeks:       len(weeks),
		MetricAverages:   map[string]types.MetricAverage{},
		TrendsOverTime:   []types.TrendPoint{},
		MoodDistribution: map[types.Mood]int{},
		MonthlyScores:    map[string]types.MonthlyScore{},
	}
	for _, m := range types.Moods {
		a.MoodDistribution[m] = 0
	}
	if len(weeks) == 0 {
		return a
	}

	sums := map[string]float64{}
	counts := map[string]int{}
	var scoreSum float64
	var scored int

	for _, w := range weeks {
		a.MoodDistribution[w.Mood]++

		for metric, v := range w.Ratings {
			if v < 0 {
				continue
			}
			sums[metric] += float64(v)
			counts[metric]++
		}

		if len(w.Ratings) == 0 {
			continue
		}

		scoreSum += w.OverallScore
		scored++

		summary := &types.WeekSummary{WeekID: w.ID, OverallScore: w.OverallScore, Mood: w.Mood}
		if a.BestWeek == nil || w.OverallScore > a.BestWeek.OverallScore {
			a.BestWeek = summary
		}
		if a.WorstWeek == nil || w.OverallScore < a.WorstWeek.OverallScore {
			a.WorstWeek = summary
		}

		month := w.StartDate.Format("2006-01")
		ms := a.MonthlyScores[month]
		ms.Month = month
		ms.Total += w.OverallScore
		ms.Count++
		a.MonthlyScores[month] = ms
	}

	for metric, sum := range sums {
		a.MetricAverages[metric] = types.MetricAverage{
			MetricID: metric,
			Average:  types.RoundOne(sum / float64(counts[metric])),
			Count:    counts[metric],
		}
	}
	for month, ms := range a.MonthlyScores {
		ms.Total = types.RoundOne(ms.Total)
		ms.Average = types.RoundOne(ms.Total / float64(ms.Count))
		a.MonthlyScores[month] = ms
	}
	if scored > 0 {
		a.AverageScore = types.RoundOne(scoreSum / float64(scored))
	}

	a.TrendsOverTime = trend(cal, weeks)
	return a
}

// trend walks one week at a time from the earliest to the latest recorded
// week, emitting a gap marker for every week missing from the store.
func trend(cal Calendar, weeks []types.WeeklyRating) []types.TrendPoint {
	byID := make(map[string]types.WeeklyRating, len(weeks))
	for _, w := range weeks {
		byID[cal.WeekID(w.StartDate)] = w
	}

	first := cal.StartOfWeek(weeks[0].StartDate)
	last := cal.StartOfWeek(weeks[len(weeks)-1].StartDate)

	points := []types.TrendPoint{}
	for cur := first; !cur.After(last); cur = cal.StartOfWeek(cur.AddDate(0, 0, 7)) {
		id := cal.WeekID(cur)
		p := types.TrendPoint{
			WeekID:     id,
			WeekNumber: ISOWeek(cur),
			StartDate:  cur,
		}
		if w, ok := byID[id]; ok {
			score := w.OverallScore
			p.HasData = true
			p.AverageScore = &score
		}
		points = append(points, p)
	}
	return points
}
