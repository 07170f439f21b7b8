package forecast

import "time"

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionMist    Condition = "mist"
)

// DateLayout is the layout of Record.Date.
const DateLayout = "2006-01-02"

// Record is one flattened forecast row: a single location on a single day.
// Location and Date are always set; temperatures are nil when the source
// had no numeric value.
type Record struct {
	Location    string    `json:"location"`
	Date        string    `json:"forecastDate"`
	MinTemp     *float64  `json:"minTemp"`
	MaxTemp     *float64  `json:"maxTemp"`
	Description string    `json:"description"`
	Condition   Condition `json:"condition"`
}

// Key returns the identity of the record inside a single sync.
func (r Record) Key() string {
	return r.Location + "|" + r.Date
}

// Payload is a raw forecast document together with where it came from.
type Payload struct {
	Origin string
	Body   []byte
}

// SyncResult describes a finished sync run.
type SyncResult struct {
	RunID     string        `json:"runId"`
	Origin    string        `json:"origin"`
	Rows      int           `json:"rows"`
	Locations int           `json:"locations"`
	Duration  time.Duration `json:"duration"`
}

// Summary is the aggregate view over a selection of records.
type Summary struct {
	Location   string    `json:"location,omitempty"` // empty means all locations
	AvgMin     *float64  `json:"avgMinTemp"`
	AvgMax     *float64  `json:"avgMaxTemp"`
	LowestMin  *float64  `json:"lowestMinTemp"`
	HighestMax *float64  `json:"highestMaxTemp"`
	Records    int       `json:"records"`
	Locations  int       `json:"locations"`
	Days       int       `json:"days"`
	Condition  Condition `json:"condition"`
}

// DayPoint is the per-day mean of a selection, used for trend views.
type DayPoint struct {
	Date   string   `json:"date"`
	AvgMin *float64 `json:"avgMinTemp"`
	AvgMax *float64 `json:"avgMaxTemp"`
}

// Filter narrows record queries. An empty Location selects every location.
type Filter struct {
	Location string
}
