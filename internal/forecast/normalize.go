package forecast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"

	"github.com/i474232898/agri-weather/internal/common"
)

// cwaDocument mirrors the parts of a CWA open data document we read. The
// agricultural forecast can live under dataset.data or resources.resource[.data];
// the tide forecast lives under dataset.location.
type cwaDocument struct {
	OpenData *struct {
		Dataset   *cwaDataset `json:"dataset"`
		Resources struct {
			Resource json.RawMessage `json:"resource"`
		} `json:"resources"`
	} `json:"cwaopendata"`
}

type cwaDataset struct {
	Data     *agrDataBlock  `json:"data"`
	Location []tideLocation `json:"location"`
}

type cwaResource struct {
	Data *agrDataBlock `json:"data"`
}

type agrDataBlock struct {
	AgrWeatherForecasts struct {
		WeatherForecasts struct {
			Location []agrLocation `json:"location"`
		} `json:"weatherForecasts"`
	} `json:"agrWeatherForecasts"`
}

type agrLocation struct {
	LocationName    string `json:"locationName"`
	WeatherElements struct {
		MinT *dailySeries `json:"MinT"`
		MaxT *dailySeries `json:"MaxT"`
		Wx   *dailySeries `json:"Wx"`
	} `json:"weatherElements"`
}

type dailySeries struct {
	Daily []dailyEntry `json:"daily"`
}

func (s *dailySeries) entry(i int) dailyEntry {
	if s == nil || i >= len(s.Daily) {
		return dailyEntry{}
	}
	return s.Daily[i]
}

func (s *dailySeries) size() int {
	if s == nil {
		return 0
	}
	return len(s.Daily)
}

type dailyEntry struct {
	DataDate    string      `json:"dataDate"`
	Temperature temperature `json:"temperature"`
	Weather     string      `json:"weather"`
}

type tideLocation struct {
	LocationName string `json:"locationName"`
	Time         []struct {
		StartTime string `json:"startTime"`
	} `json:"time"`
}

// temperature accepts a JSON number or a numeric string. Anything else
// (null, "-", "", objects) leaves the value nil instead of failing the document.
type temperature struct {
	value *float64
}

func (t *temperature) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil
		}
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	t.value = &f
	return nil
}

// Normalize flattens a CWA forecast document into one Record per location and day.
// It returns a *ParseError when the document is not JSON or lacks the expected
// nested structure.
func Normalize(body []byte) ([]Record, error) {
	var doc cwaDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &ParseError{Reason: "decode document", Err: err}
	}
	if doc.OpenData == nil {
		return nil, &ParseError{Reason: `missing "cwaopendata"`}
	}

	blocks, err := agriculturalBlocks(doc)
	if err != nil {
		return nil, err
	}
	for _, block := range blocks {
		if locs := block.AgrWeatherForecasts.WeatherForecasts.Location; len(locs) > 0 {
			return flattenAgricultural(locs)
		}
	}

	if ds := doc.OpenData.Dataset; ds != nil && len(ds.Location) > 0 {
		return flattenTide(ds.Location)
	}

	return nil, &ParseError{Reason: "no forecast locations found"}
}

func agriculturalBlocks(doc cwaDocument) ([]*agrDataBlock, error) {
	var blocks []*agrDataBlock

	if ds := doc.OpenData.Dataset; ds != nil && ds.Data != nil {
		blocks = append(blocks, ds.Data)
	}

	raw := bytes.TrimSpace(doc.OpenData.Resources.Resource)
	if len(raw) == 0 {
		return blocks, nil
	}

	switch raw[0] {
	case '{':
		var res cwaResource
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, &ParseError{Reason: "decode resources.resource", Err: err}
		}
		if res.Data != nil {
			blocks = append(blocks, res.Data)
		}
	case '[':
		var list []cwaResource
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, &ParseError{Reason: "decode resources.resource", Err: err}
		}
		for _, res := range list {
			if res.Data != nil {
				blocks = append(blocks, res.Data)
			}
		}
	}

	return blocks, nil
}

func flattenAgricultural(locs []agrLocation) ([]Record, error) {
	records := make([]Record, 0, len(locs)*7)
	seen := make(map[string]struct{}, len(locs)*7)

	for i, loc := range locs {
		name := normalizeName(loc.LocationName)
		if name == "" {
			return nil, &ParseError{Reason: fmt.Sprintf("location %d has no locationName", i)}
		}

		el := loc.WeatherElements
		days := max(el.MinT.size(), el.MaxT.size(), el.Wx.size())
		if days == 0 {
			return nil, &ParseError{Reason: fmt.Sprintf("location %q has no MinT/MaxT/Wx daily series", name)}
		}

		for d := 0; d < days; d++ {
			minE, maxE, wxE := el.MinT.entry(d), el.MaxT.entry(d), el.Wx.entry(d)

			date := normalizeDate(common.FirstNonEmpty(minE.DataDate, maxE.DataDate, wxE.DataDate))
			if date == "" {
				return nil, &ParseError{Reason: fmt.Sprintf("location %q day %d has no dataDate", name, d)}
			}

			description := strings.TrimSpace(wxE.Weather)
			rec := Record{
				Location:    name,
				Date:        date,
				MinTemp:     minE.Temperature.value,
				MaxTemp:     maxE.Temperature.value,
				Description: description,
				Condition:   ClassifyCondition(description),
			}

			if _, dup := seen[rec.Key()]; dup {
				continue
			}
			seen[rec.Key()] = struct{}{}
			records = append(records, rec)
		}
	}

	if len(records) == 0 {
		return nil, &ParseError{Reason: "forecast locations yielded no records"}
	}
	return records, nil
}

func flattenTide(locs []tideLocation) ([]Record, error) {
	records := make([]Record, 0, len(locs))
	seen := make(map[string]struct{}, len(locs))

	for i, loc := range locs {
		name := normalizeName(loc.LocationName)
		if name == "" {
			return nil, &ParseError{Reason: fmt.Sprintf("tide location %d has no locationName", i)}
		}

		var start string
		if len(loc.Time) > 0 {
			start = strings.TrimSpace(loc.Time[0].StartTime)
		}
		if start == "" {
			return nil, &ParseError{Reason: fmt.Sprintf("tide location %q has no startTime", name)}
		}

		rec := Record{
			Location:    name,
			Date:        normalizeDate(start),
			Description: start,
			Condition:   ConditionUnknown,
		}
		if _, dup := seen[rec.Key()]; dup {
			continue
		}
		seen[rec.Key()] = struct{}{}
		records = append(records, rec)
	}

	return records, nil
}

func normalizeName(s string) string {
	return width.Fold.String(strings.TrimSpace(s))
}

// normalizeDate reduces timestamps such as "2024-06-01T00:00:00+08:00" to the
// date part. Values that do not start with a date are kept as-is.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < len(DateLayout) {
		return s
	}
	if _, err := time.Parse(DateLayout, s[:len(DateLayout)]); err != nil {
		return s
	}
	return s[:len(DateLayout)]
}

// ClassifyCondition maps a free-text CWA weather description (Chinese or English)
// to a Condition.
func ClassifyCondition(description string) Condition {
	text := strings.ToLower(description)
	switch {
	case text == "":
		return ConditionUnknown
	case common.HasAny(text, "雷", "thunder", "storm"):
		return ConditionStorm
	case common.HasAny(text, "雪", "snow", "sleet"):
		return ConditionSnow
	case common.HasAny(text, "雨", "rain", "shower", "drizzle"):
		return ConditionRain
	case common.HasAny(text, "霧", "霾", "fog", "mist", "haze"):
		return ConditionMist
	case common.HasAny(text, "雲", "陰", "cloud", "overcast"):
		return ConditionCloudy
	case common.HasAny(text, "晴", "sunny", "clear"):
		return ConditionClear
	default:
		return ConditionUnknown
	}
}
