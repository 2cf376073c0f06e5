package features

import (
	"math"
	"time"
)

// Periods of the cyclical encodings.
const (
	MonthPeriod      = 12
	DayOfWeekPeriod  = 7
	DayOfMonthPeriod = 31
	HourPeriod       = 24
)

// TimeFeatures holds the calendar encodings of one timestamp.
type TimeFeatures struct {
	MonthSin, MonthCos         float64
	DayOfWeekSin, DayOfWeekCos float64
	DaySin, DayCos             float64
	HourSin, HourCos           float64
	Year                       int
}

// DayOfWeek numbers weekdays Sunday=1 … Saturday=7, matching the warehouse
// SQL dayofweek function.
func DayOfWeek(t time.Time) int {
	return int(t.Weekday()) + 1
}

// Cyclical maps value onto the unit circle with the given period.
func Cyclical(value float64, period float64) (sin, cos float64) {
	return math.Sincos(2 * math.Pi * value / period)
}

// EncodeTime encodes the calendar components of t, evaluated in UTC.
// Month runs 1..12, day of month 1..31 and hour 0..23.
func EncodeTime(t time.Time) TimeFeatures {
	u := t.UTC()
	var f TimeFeatures
	f.MonthSin, f.MonthCos = Cyclical(float64(u.Month()), MonthPeriod)
	f.DayOfWeekSin, f.DayOfWeekCos = Cyclical(float64(DayOfWeek(u)), DayOfWeekPeriod)
	f.DaySin, f.DayCos = Cyclical(float64(u.Day()), DayOfMonthPeriod)
	f.HourSin, f.HourCos = Cyclical(float64(u.Hour()), HourPeriod)
	f.Year = u.Year()
	return f
}

// WeatherTimeDelta is the signed number of seconds between the accident start
// and the weather observation. It is negative when the observation comes later.
func WeatherTimeDelta(start, observed time.Time) int64 {
	return start.Unix() - observed.Unix()
}
