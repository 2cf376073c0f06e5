package warehouse

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/severity/dataset"
	"github.com/YuminosukeSato/severity/dataset/datasettest"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/pkg/log"
	"github.com/YuminosukeSato/severity/report"
)

func openTemp(t *testing.T) *Warehouse {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelError)
	w, err := Open(filepath.Join(t.TempDir(), "data", "projectdb.sqlite"), WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

// sameCells compares every record column cell by cell, nulls included.
func sameCells(t *testing.T, want, got *dataset.Frame) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len())
	for _, name := range dataset.RequiredColumns() {
		wc, err := want.Column(name)
		require.NoError(t, err)
		gc, err := got.Column(name)
		require.NoError(t, err)
		require.Equal(t, wc.Kind, gc.Kind, name)
		for i := 0; i < want.Len(); i++ {
			require.Equal(t, wc.IsNull(i), gc.IsNull(i), "%s row %d", name, i)
			if wc.IsNull(i) {
				continue
			}
			if wc.Kind == dataset.KindTime {
				assert.True(t, wc.Times[i].Equal(gc.Times[i]), "%s row %d", name, i)
				continue
			}
			assert.Equal(t, wc.Category(i), gc.Category(i), "%s row %d", name, i)
		}
	}
}

func TestInsertAndLoad(t *testing.T) {
	ctx := context.Background()
	w := openTemp(t)
	require.NoError(t, w.CreateSourceTable(ctx))
	require.NoError(t, w.CreateSourceTable(ctx), "idempotent")

	frame := datasettest.WithNulls(datasettest.Accidents(25, 3), dataset.ColTemperatureF, 2, 7)
	frame = datasettest.WithNulls(frame, dataset.ColWindDirection, 4)
	frame = datasettest.WithNulls(frame, dataset.ColWeatherTimestamp, 5)
	frame = datasettest.WithNulls(frame, dataset.ColBump, 6)

	n, err := w.InsertFrame(ctx, frame)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	count, err := w.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, count)

	loaded, err := w.LoadDataset(ctx)
	require.NoError(t, err)
	sameCells(t, frame, loaded)
}

func TestLoadDatasetMissingTable(t *testing.T) {
	w := openTemp(t)
	_, err := w.LoadDataset(context.Background())
	assert.Error(t, err)
}

func TestCustomTable(t *testing.T) {
	ctx := context.Background()
	logger, _ := log.NewTestLogger(log.LevelError)
	w, err := Open(filepath.Join(t.TempDir(), "db.sqlite"), WithTable("accidents_small"), WithLogger(logger))
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, "accidents_small", w.Table())

	require.NoError(t, w.CreateSourceTable(ctx))
	_, err = w.InsertFrame(ctx, datasettest.Accidents(3, 1))
	require.NoError(t, err)
	n, err := w.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRegisterEvaluation(t *testing.T) {
	ctx := context.Background()
	w := openTemp(t)
	c, err := report.Compare(
		[]string{"PCA+LogReg", "PCA+RandomForest"},
		[][]float64{{0.1, 0.2, 0.3, 0.4, 0.5}, {0.6, 0.7, 0.8, 0.9, 1}},
	)
	require.NoError(t, err)

	require.NoError(t, w.RegisterEvaluation(ctx, c))
	got, err := w.Evaluations(ctx)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	// replaced, not appended
	single, err := report.Compare([]string{"PCA+DecisionTrees"}, [][]float64{{1, 1, 1, 1, 1}})
	require.NoError(t, err)
	require.NoError(t, w.RegisterEvaluation(ctx, single))
	got, err = w.Evaluations(ctx)
	require.NoError(t, err)
	assert.Equal(t, single, got)
}

const rawCSV = `ID,Source,Severity,Start_Time,End_Time,Start_Lat,Start_Lng,Distance(mi),Description,Street,City,County,State,Zipcode,Country,Timezone,Airport_Code,Weather_Timestamp,Temperature(F),Humidity(%),Pressure(in),Visibility(mi),Wind_Direction,Wind_Speed(mph),Weather_Condition,Amenity,Bump,Crossing,Give_Way,Junction,No_Exit,Railway,Roundabout,Station,Stop,Traffic_Calming,Traffic_Signal,Sunrise_Sunset,Civil_Twilight,Nautical_Twilight,Astronomical_Twilight
A-1,Source2,3,2016-02-08 05:46:00,2016-02-08 11:00:00,39.865147,-84.058723,0.01,Right lane blocked,I-70 E,Dayton,Montgomery,OH,45424,US,US/Eastern,KFFO,2016-02-08 05:58:00,36.9,91,29.68,10,Calm,,Light Rain,False,False,False,False,False,False,False,False,False,False,False,False,Night,Night,Night,Night
A-2,Source2,2,2016-02-08 06:07:59,2016-02-08 06:37:59,39.928059,-82.831184,0.01,Accident on Brice Rd,Brice Rd,Reynoldsburg,Franklin,OH,43068-3402,US,US/Eastern,KCMH,2016-02-08 05:51:00,37.9,100,29.65,10,Calm,,Light Rain,False,False,False,False,False,False,False,False,False,False,False,True,Night,Night,Night,Day
`

func TestReadCSV(t *testing.T) {
	frame, err := ReadCSV(strings.NewReader(rawCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Len())
	assert.Equal(t, dataset.RequiredColumns(), frame.Names())

	sev, err := frame.Column(dataset.ColSeverity)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, sev.Ints)

	start, err := frame.Column(dataset.ColStartTime)
	require.NoError(t, err)
	assert.True(t, start.Times[0].Equal(time.Date(2016, 2, 8, 5, 46, 0, 0, time.UTC)))

	wind, err := frame.Column(dataset.ColWindSpeedMph)
	require.NoError(t, err)
	assert.True(t, wind.IsNull(0), "empty cell is null")

	signal, err := frame.Column(dataset.ColTrafficSignal)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, signal.Bools)

	hum, err := frame.Column(dataset.ColHumidityPercent)
	require.NoError(t, err)
	assert.Equal(t, []float64{91, 100}, hum.Floats)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Severity,Start_Lat\n1,2\n"))
	var se *scierrors.SchemaError
	assert.ErrorAs(t, err, &se)

	bad := strings.Replace(rawCSV, "39.865147", "north", 1)
	_, err = ReadCSV(strings.NewReader(bad))
	assert.ErrorAs(t, err, &se)

	_, err = ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"Distance(mi)":      "distance_mi",
		"Humidity(%)":       "humidity_percent",
		"Wind_Speed(mph)":   "wind_speed_mph",
		"Weather_Timestamp": "weather_timestamp",
		" Start_Lat ":       "start_lat",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHeader(in), in)
	}
}

func TestSample(t *testing.T) {
	frame := datasettest.Accidents(50, 9)
	s := Sample(frame, 10, 42)
	assert.Equal(t, 10, s.Len())

	again := Sample(frame, 10, 42)
	a, _ := s.Column(dataset.ColDescription)
	b, _ := again.Column(dataset.ColDescription)
	assert.Equal(t, a.Strings, b.Strings)

	assert.Same(t, frame, Sample(frame, 100, 42))
	assert.Same(t, frame, Sample(frame, 0, 42))
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2016-02-08 05:46:00", "2016-02-08 05:46:00.000000000", "2016-02-08T05:46:00Z"} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.True(t, got.Equal(time.Date(2016, 2, 8, 5, 46, 0, 0, time.UTC)), s)
	}
	_, err := ParseTime("yesterday")
	assert.Error(t, err)
}
