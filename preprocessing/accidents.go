package preprocessing

import (
	"github.com/jonboulle/clockwork"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/dataset"
	"github.com/YuminosukeSato/severity/features"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/pkg/log"
)

// CategoricalColumns are indexed, clipped and one-hot encoded.
var CategoricalColumns = []string{
	dataset.ColStreet,
	dataset.ColCity,
	dataset.ColCounty,
	dataset.ColState,
	dataset.ColZipcode,
	dataset.ColTimezone,
	dataset.ColAirportCode,
	dataset.ColWindDirection,
	dataset.ColWeatherCondition,
	dataset.ColSunriseSunset,
	dataset.ColCivilTwilight,
	dataset.ColNauticalTwilight,
	dataset.ColAstronomicalTwilight,
}

// NumericalColumns are appended after the one-hot blocks, in this order.
var NumericalColumns = []string{
	dataset.ColECEFX,
	dataset.ColECEFY,
	dataset.ColECEFZ,
	dataset.ColYear,
	dataset.ColHourSin,
	dataset.ColHourCos,
	dataset.ColDaySin,
	dataset.ColDayCos,
	dataset.ColMonthSin,
	dataset.ColMonthCos,
	dataset.ColDayOfWeekSin,
	dataset.ColDayOfWeekCos,
	dataset.ColTemperatureF,
	dataset.ColHumidityPercent,
	dataset.ColPressureIn,
	dataset.ColVisibilityMi,
	dataset.ColWindSpeedMph,
	dataset.ColWeatherTime,
	dataset.ColAmenity,
	dataset.ColBump,
	dataset.ColCrossing,
	dataset.ColGiveWay,
	dataset.ColJunction,
	dataset.ColNoExit,
	dataset.ColRailway,
	dataset.ColRoundabout,
	dataset.ColStation,
	dataset.ColStop,
	dataset.ColTrafficCalming,
	dataset.ColTrafficSignal,
}

// supersededColumns are dropped once the derived features exist.
var supersededColumns = []string{
	dataset.ColStartLat,
	dataset.ColStartLng,
	dataset.ColStartTime,
	dataset.ColWeatherTimestamp,
	dataset.ColDescription,
	dataset.ColDistanceMi,
}

// AccidentPreprocessor turns raw accident records into weighted feature
// vectors.
type AccidentPreprocessor struct {
	Threshold   int
	Categorical []string
	Numerical   []string

	logger   log.Logger
	clock    clockwork.Clock
	pipeline *FeaturePipeline
}

// PreprocessorOption configures an AccidentPreprocessor.
type PreprocessorOption func(*AccidentPreprocessor)

// WithClipThreshold sets the category clip threshold.
func WithClipThreshold(t int) PreprocessorOption {
	return func(p *AccidentPreprocessor) { p.Threshold = t }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) PreprocessorOption {
	return func(p *AccidentPreprocessor) { p.logger = l }
}

// WithClock sets the clock used for stage timings.
func WithClock(c clockwork.Clock) PreprocessorOption {
	return func(p *AccidentPreprocessor) { p.clock = c }
}

// NewAccidentPreprocessor returns a preprocessor over the declared columns.
func NewAccidentPreprocessor(opts ...PreprocessorOption) *AccidentPreprocessor {
	p := &AccidentPreprocessor{
		Threshold:   DefaultClipThreshold,
		Categorical: CategoricalColumns,
		Numerical:   NumericalColumns,
		logger:      log.GetLoggerWithName("preprocessing"),
		clock:       clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pipeline returns the feature pipeline fitted by the last Preprocess call.
func (p *AccidentPreprocessor) Pipeline() *FeaturePipeline { return p.pipeline }

// Preprocess selects the required columns, drops incomplete rows, derives
// the geodetic and calendar features, fits the feature pipeline and returns
// the weighted (features, label) projection.
func (p *AccidentPreprocessor) Preprocess(frame *dataset.Frame) (*dataset.Labeled, error) {
	start := p.clock.Now()
	derived, err := p.Derive(frame)
	if err != nil {
		return nil, err
	}

	pipeline := BuildFeaturePipeline(p.Categorical, p.Numerical, p.Threshold)
	feats, err := pipeline.FitTransform(derived)
	if err != nil {
		return nil, scierrors.Wrap(err, "preprocess: feature pipeline")
	}
	p.pipeline = pipeline
	card := pipeline.Cardinalities()
	for _, col := range p.Categorical {
		p.logger.Debug("Category vocabulary",
			log.ColumnKey, col,
			log.CardinalityKey, card[col],
		)
	}

	out, err := p.project(derived, feats)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Preprocessing finished",
		log.OperationKey, log.OperationTransform,
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, out.Len(),
		log.FeaturesKey, out.Width(),
		"rows_dropped", frame.Len()-derived.Len(),
		log.DurationMsKey, p.clock.Since(start).Milliseconds(),
	)
	return out, nil
}

// Apply transforms new raw records with the pipeline fitted by Preprocess.
// Categories unseen at fit time fail with UnseenCategoryError.
func (p *AccidentPreprocessor) Apply(frame *dataset.Frame) (*dataset.Labeled, error) {
	if p.pipeline == nil {
		return nil, scierrors.NewNotFittedError("AccidentPreprocessor", "Apply")
	}
	derived, err := p.Derive(frame)
	if err != nil {
		return nil, err
	}
	feats, err := p.pipeline.Transform(derived)
	if err != nil {
		return nil, scierrors.Wrap(err, "apply: feature pipeline")
	}
	return p.project(derived, feats)
}

func (p *AccidentPreprocessor) project(derived *dataset.Frame, feats *mat.Dense) (*dataset.Labeled, error) {
	labelCol, err := derived.Column(dataset.ColLabel)
	if err != nil {
		return nil, err
	}
	label := make([]float64, labelCol.Len())
	for i := range label {
		if label[i], err = labelCol.Float(i); err != nil {
			return nil, err
		}
	}
	out, err := dataset.NewLabeled(feats, label)
	if err != nil {
		return nil, err
	}
	return AttachWeights(out), nil
}

// Derive runs every step before feature encoding: select, drop nulls,
// rename severity to label, add calendar and ECEF columns and drop the raw
// columns they replace.
func (p *AccidentPreprocessor) Derive(frame *dataset.Frame) (*dataset.Frame, error) {
	selected, err := frame.Select(dataset.RequiredColumns()...)
	if err != nil {
		return nil, scierrors.Wrap(err, "preprocess: select")
	}
	if err := checkKinds(selected); err != nil {
		return nil, err
	}

	clean := selected.DropNulls()
	if clean.Len() == 0 {
		return nil, scierrors.Wrap(scierrors.ErrEmptyData, "preprocess: no complete rows")
	}
	cur, err := clean.Rename(dataset.ColSeverity, dataset.ColLabel)
	if err != nil {
		return nil, err
	}

	if cur, err = withTimeFeatures(cur); err != nil {
		return nil, err
	}
	if cur, err = withECEF(cur); err != nil {
		return nil, err
	}
	return cur.Drop(supersededColumns...), nil
}

func checkKinds(frame *dataset.Frame) error {
	for _, f := range dataset.RecordSchema {
		col, err := frame.Column(f.Name)
		if err != nil {
			return err
		}
		if col.Kind != f.Kind {
			return scierrors.NewSchemaError("preprocess", f.Name,
				"expected "+f.Kind.String()+", got "+col.Kind.String())
		}
	}
	return nil
}

func withTimeFeatures(frame *dataset.Frame) (*dataset.Frame, error) {
	startCol, err := frame.Column(dataset.ColStartTime)
	if err != nil {
		return nil, err
	}
	weatherCol, err := frame.Column(dataset.ColWeatherTimestamp)
	if err != nil {
		return nil, err
	}

	n := frame.Len()
	names := []string{
		dataset.ColMonthSin, dataset.ColMonthCos,
		dataset.ColDayOfWeekSin, dataset.ColDayOfWeekCos,
		dataset.ColDaySin, dataset.ColDayCos,
		dataset.ColHourSin, dataset.ColHourCos,
	}
	vals := make([][]float64, len(names))
	for i := range vals {
		vals[i] = make([]float64, n)
	}
	year := make([]int64, n)
	delta := make([]int64, n)

	for r := 0; r < n; r++ {
		start := startCol.Times[r]
		f := features.EncodeTime(start)
		vals[0][r], vals[1][r] = f.MonthSin, f.MonthCos
		vals[2][r], vals[3][r] = f.DayOfWeekSin, f.DayOfWeekCos
		vals[4][r], vals[5][r] = f.DaySin, f.DayCos
		vals[6][r], vals[7][r] = f.HourSin, f.HourCos
		year[r] = int64(f.Year)
		delta[r] = features.WeatherTimeDelta(start, weatherCol.Times[r])
	}

	cur := frame
	for i, name := range names {
		if cur, err = cur.WithColumn(dataset.NewFloatColumn(name, vals[i], nil)); err != nil {
			return nil, err
		}
	}
	if cur, err = cur.WithColumn(dataset.NewIntColumn(dataset.ColYear, year, nil)); err != nil {
		return nil, err
	}
	return cur.WithColumn(dataset.NewIntColumn(dataset.ColWeatherTime, delta, nil))
}

func withECEF(frame *dataset.Frame) (*dataset.Frame, error) {
	latCol, err := frame.Column(dataset.ColStartLat)
	if err != nil {
		return nil, err
	}
	lngCol, err := frame.Column(dataset.ColStartLng)
	if err != nil {
		return nil, err
	}

	n := frame.Len()
	xs, ys, zs := make([]float64, n), make([]float64, n), make([]float64, n)
	for r := 0; r < n; r++ {
		xs[r], ys[r], zs[r] = features.ECEF(latCol.Floats[r], lngCol.Floats[r])
	}

	cur := frame
	for _, c := range []*dataset.Column{
		dataset.NewFloatColumn(dataset.ColECEFX, xs, nil),
		dataset.NewFloatColumn(dataset.ColECEFY, ys, nil),
		dataset.NewFloatColumn(dataset.ColECEFZ, zs, nil),
	} {
		if cur, err = cur.WithColumn(c); err != nil {
			return nil, err
		}
	}
	return cur, nil
}
