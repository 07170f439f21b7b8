package forecast

import "sort"

// Summarize combines a selection of records into a Summary.
// Temperatures are averaged over the records that have a value; nil sentinels are
// skipped. The condition is selected by majority (ties go to the first seen).
func Summarize(location string, records []Record) Summary {
	summary := Summary{
		Location:  location,
		Records:   len(records),
		Condition: ConditionUnknown,
	}
	if len(records) == 0 {
		return summary
	}

	var (
		minAcc, maxAcc mean
		lowest         *float64
		highest        *float64
	)

	locations := make(map[string]struct{})
	days := make(map[string]struct{})
	conditionCounts := make(map[Condition]int)
	var conditionOrder []Condition

	for _, r := range records {
		locations[r.Location] = struct{}{}
		days[r.Date] = struct{}{}

		if r.MinTemp != nil {
			minAcc.add(*r.MinTemp)
			if lowest == nil || *r.MinTemp < *lowest {
				v := *r.MinTemp
				lowest = &v
			}
		}
		if r.MaxTemp != nil {
			maxAcc.add(*r.MaxTemp)
			if highest == nil || *r.MaxTemp > *highest {
				v := *r.MaxTemp
				highest = &v
			}
		}

		if _, ok := conditionCounts[r.Condition]; !ok {
			conditionOrder = append(conditionOrder, r.Condition)
		}
		conditionCounts[r.Condition]++
	}

	// Pick majority condition.
	bestCount := 0
	for _, cond := range conditionOrder {
		if count := conditionCounts[cond]; count > bestCount {
			bestCount = count
			summary.Condition = cond
		}
	}

	summary.AvgMin = minAcc.value()
	summary.AvgMax = maxAcc.value()
	summary.LowestMin = lowest
	summary.HighestMax = highest
	summary.Locations = len(locations)
	summary.Days = len(days)
	return summary
}

// DailyTrend averages min/max temperatures per date across the selection and
// returns the points ordered by date.
func DailyTrend(records []Record) []DayPoint {
	type acc struct{ min, max mean }
	byDate := make(map[string]*acc)

	for _, r := range records {
		a, ok := byDate[r.Date]
		if !ok {
			a = &acc{}
			byDate[r.Date] = a
		}
		if r.MinTemp != nil {
			a.min.add(*r.MinTemp)
		}
		if r.MaxTemp != nil {
			a.max.add(*r.MaxTemp)
		}
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	points := make([]DayPoint, 0, len(dates))
	for _, d := range dates {
		a := byDate[d]
		points = append(points, DayPoint{
			Date:   d,
			AvgMin: a.min.value(),
			AvgMax: a.max.value(),
		})
	}
	return points
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m *mean) value() *float64 {
	if m.n == 0 {
		return nil
	}
	v := m.sum / float64(m.n)
	return &v
}
