// Package datasettest builds synthetic accident frames for tests.
package datasettest

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/YuminosukeSato/severity/dataset"
)

var (
	states     = []string{"CA", "TX", "FL", "NY", "OH"}
	timezones  = []string{"US/Pacific", "US/Central", "US/Eastern"}
	winds      = []string{"N", "S", "E", "W", "CALM"}
	conditions = []string{"Clear", "Rain", "Fog", "Snow", "Overcast", "Light Rain"}
	daylight   = []string{"Day", "Night"}
)

// Accidents returns n complete rows of the source schema. Severity is
// correlated with visibility and the traffic_signal flag so classifiers have
// signal to learn. The same seed yields the same frame.
func Accidents(n int, seed int64) *dataset.Frame {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2016, 2, 8, 0, 0, 0, 0, time.UTC)

	floats := map[string][]float64{}
	strs := map[string][]string{}
	times := map[string][]time.Time{}
	bools := map[string][]bool{}
	severity := make([]int64, n)

	for _, f := range dataset.RecordSchema {
		switch f.Kind {
		case dataset.KindFloat:
			floats[f.Name] = make([]float64, n)
		case dataset.KindString:
			strs[f.Name] = make([]string, n)
		case dataset.KindTime:
			times[f.Name] = make([]time.Time, n)
		case dataset.KindBool:
			bools[f.Name] = make([]bool, n)
		}
	}

	for i := 0; i < n; i++ {
		st := rng.Intn(len(states))
		start := base.Add(time.Duration(rng.Intn(3*365*24)) * time.Hour).Add(time.Duration(rng.Intn(3600)) * time.Second)

		floats[dataset.ColStartLat][i] = 25 + rng.Float64()*20
		floats[dataset.ColStartLng][i] = -120 + rng.Float64()*45
		floats[dataset.ColDistanceMi][i] = rng.Float64() * 3
		floats[dataset.ColTemperatureF][i] = 20 + rng.Float64()*70
		floats[dataset.ColHumidityPercent][i] = rng.Float64() * 100
		floats[dataset.ColPressureIn][i] = 29 + rng.Float64()*2
		vis := rng.Float64() * 10
		floats[dataset.ColVisibilityMi][i] = vis
		floats[dataset.ColWindSpeedMph][i] = rng.Float64() * 25

		strs[dataset.ColDescription][i] = fmt.Sprintf("accident %d", i)
		strs[dataset.ColStreet][i] = fmt.Sprintf("Street %d", rng.Intn(30))
		strs[dataset.ColCity][i] = fmt.Sprintf("City %d", rng.Intn(25))
		strs[dataset.ColCounty][i] = fmt.Sprintf("County %d", rng.Intn(8))
		strs[dataset.ColState][i] = states[st]
		strs[dataset.ColZipcode][i] = fmt.Sprintf("%05d", 10000+rng.Intn(40))
		strs[dataset.ColTimezone][i] = timezones[st%len(timezones)]
		strs[dataset.ColAirportCode][i] = fmt.Sprintf("K%03d", rng.Intn(12))
		strs[dataset.ColWindDirection][i] = winds[rng.Intn(len(winds))]
		strs[dataset.ColWeatherCondition][i] = conditions[rng.Intn(len(conditions))]
		for _, c := range []string{dataset.ColSunriseSunset, dataset.ColCivilTwilight, dataset.ColNauticalTwilight, dataset.ColAstronomicalTwilight} {
			strs[c][i] = daylight[rng.Intn(2)]
		}

		times[dataset.ColStartTime][i] = start
		times[dataset.ColWeatherTimestamp][i] = start.Add(-time.Duration(rng.Intn(3600)-600) * time.Second)

		for name := range bools {
			bools[name][i] = rng.Float64() < 0.15
		}
		signal := rng.Float64() < 0.3
		bools[dataset.ColTrafficSignal][i] = signal

		switch {
		case vis < 1.5:
			severity[i] = 4
		case signal:
			severity[i] = 3
		case vis < 5:
			severity[i] = 2
		default:
			severity[i] = 1
		}
	}

	cols := make([]*dataset.Column, 0, len(dataset.RecordSchema))
	for _, f := range dataset.RecordSchema {
		switch f.Kind {
		case dataset.KindFloat:
			cols = append(cols, dataset.NewFloatColumn(f.Name, floats[f.Name], nil))
		case dataset.KindString:
			cols = append(cols, dataset.NewStringColumn(f.Name, strs[f.Name], nil))
		case dataset.KindTime:
			cols = append(cols, dataset.NewTimeColumn(f.Name, times[f.Name], nil))
		case dataset.KindBool:
			cols = append(cols, dataset.NewBoolColumn(f.Name, bools[f.Name], nil))
		case dataset.KindInt:
			cols = append(cols, dataset.NewIntColumn(f.Name, severity, nil))
		}
	}
	frame, err := dataset.NewFrame(cols...)
	if err != nil {
		panic(err)
	}
	return frame
}

// WithNulls returns a copy of frame where the given rows of column are null.
func WithNulls(frame *dataset.Frame, column string, rows ...int) *dataset.Frame {
	col, err := frame.Column(column)
	if err != nil {
		panic(err)
	}
	cp := col.Take(allRows(frame.Len()))
	cp.Valid = make([]bool, frame.Len())
	for i := range cp.Valid {
		cp.Valid[i] = true
	}
	for _, r := range rows {
		cp.Valid[r] = false
	}
	out, err := frame.WithColumn(cp)
	if err != nil {
		panic(err)
	}
	return out
}

func allRows(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
