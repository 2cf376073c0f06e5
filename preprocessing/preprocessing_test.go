package preprocessing

import (
	"fmt"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/severity/dataset"
	"github.com/YuminosukeSato/severity/dataset/datasettest"
	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
	"github.com/YuminosukeSato/severity/pkg/log"
)

func TestCategoryClip(t *testing.T) {
	clip := CategoryClip{InputCol: "idx", OutputCol: "idx_clipped", Threshold: 20}
	require.NoError(t, clip.Validate())

	in := make([]int64, 26)
	for i := range in {
		in[i] = int64(i)
	}
	frame, err := dataset.NewFrame(dataset.NewIntColumn("idx", in, nil))
	require.NoError(t, err)

	out, err := clip.Transform(frame)
	require.NoError(t, err)
	col, err := out.Column("idx_clipped")
	require.NoError(t, err)

	for i, v := range col.Ints {
		if i < 20 {
			assert.Equal(t, int64(i), v, "values below the threshold are unchanged")
		} else {
			assert.Equal(t, int64(20), v, "values at or above the threshold collapse")
		}
		assert.Equal(t, clip.Apply(v), v, "idempotent")
	}

	again, err := CategoryClip{InputCol: "idx_clipped", OutputCol: "twice", Threshold: 20}.Transform(out)
	require.NoError(t, err)
	twice, _ := again.Column("twice")
	assert.Equal(t, col.Ints, twice.Ints)

	orig, _ := out.Column("idx")
	assert.Equal(t, in, orig.Ints, "input column untouched")
}

func TestCategoryClipValidation(t *testing.T) {
	clip := CategoryClip{InputCol: "a", OutputCol: "b", Threshold: -1}
	var ve *scierrors.ValidationError
	assert.True(t, scierrors.As(clip.Validate(), &ve))

	frame, _ := dataset.NewFrame(dataset.NewStringColumn("a", []string{"x"}, nil))
	_, err := CategoryClip{InputCol: "a", OutputCol: "b"}.Transform(frame)
	var se *scierrors.SchemaError
	assert.True(t, scierrors.As(err, &se))

	assert.Equal(t, int64(0), CategoryClip{Threshold: 0}.Apply(7))
}

func TestStringIndexerOrdering(t *testing.T) {
	frame, _ := dataset.NewFrame(dataset.NewStringColumn("c", []string{"b", "a", "c", "a", "b", "a", "d"}, nil))
	idx := &StringIndexer{InputCol: "c", OutputCol: "c_idx"}
	require.NoError(t, idx.Fit(frame))

	// frequency descending, then alphabetical
	assert.Equal(t, []string{"a", "b", "c", "d"}, idx.Labels)

	out, err := idx.Transform(frame)
	require.NoError(t, err)
	col, _ := out.Column("c_idx")
	assert.Equal(t, []int64{1, 0, 2, 0, 1, 0, 3}, col.Ints)
}

func TestStringIndexerUnseenCategory(t *testing.T) {
	train, _ := dataset.NewFrame(dataset.NewStringColumn("state", []string{"CA", "TX"}, nil))
	test, _ := dataset.NewFrame(dataset.NewStringColumn("state", []string{"CA", "ZZ"}, nil))

	idx := &StringIndexer{InputCol: "state", OutputCol: "state_idx"}
	require.NoError(t, idx.Fit(train))

	_, err := idx.Transform(test)
	require.Error(t, err)
	var unseen *scierrors.UnseenCategoryError
	require.True(t, scierrors.As(err, &unseen))
	assert.Equal(t, "ZZ", unseen.Value)
	assert.Equal(t, 1, unseen.Row)
}

// pipelineFrame has a 25-value categorical column, a 3-value one and two
// numeric columns.
func pipelineFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	n := 30
	wide := make([]string, n)
	narrow := make([]string, n)
	num := make([]float64, n)
	flag := make([]bool, n)
	for i := 0; i < n; i++ {
		wide[i] = fmt.Sprintf("v%02d", i%25)
		narrow[i] = []string{"x", "y", "z"}[i%3]
		num[i] = float64(i) / 10
		flag[i] = i%2 == 0
	}
	frame, err := dataset.NewFrame(
		dataset.NewStringColumn("wide", wide, nil),
		dataset.NewStringColumn("narrow", narrow, nil),
		dataset.NewFloatColumn("num", num, nil),
		dataset.NewBoolColumn("flag", flag, nil),
	)
	require.NoError(t, err)
	return frame
}

func TestFeaturePipelineLayout(t *testing.T) {
	p := BuildFeaturePipeline([]string{"wide", "narrow"}, []string{"num", "flag"}, 20)

	kinds := make([]StepKind, len(p.Steps))
	for i, s := range p.Steps {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []StepKind{StepIndex, StepIndex, StepClip, StepClip, StepOneHot, StepOneHot, StepAssemble}, kinds)

	X, err := p.FitTransform(pipelineFrame(t))
	require.NoError(t, err)

	// min(25, 21) + min(3, 21) + 2 numeric columns
	assert.Equal(t, 21+3+2, p.Width())
	r, c := X.Dims()
	assert.Equal(t, 30, r)
	assert.Equal(t, 26, c)

	// every row has exactly one hot slot per categorical block
	for i := 0; i < r; i++ {
		assert.Equal(t, 1.0, mat.Sum(X.Slice(i, i+1, 0, 21)))
		assert.Equal(t, 1.0, mat.Sum(X.Slice(i, i+1, 21, 24)))
	}
	// v00..v04 appear twice and lead the vocabulary, v24 is clipped into slot 20
	assert.Equal(t, 1.0, X.At(0, 0))
	assert.Equal(t, 1.0, X.At(24, 20))
	assert.Equal(t, 2.9, X.At(29, 24))
	assert.Equal(t, 1.0, X.At(0, 25))

	names := p.FeatureNames()
	require.Len(t, names, 26)
	assert.Equal(t, "wide=v00", names[0])
	assert.Equal(t, "wide=<other>", names[20])
	assert.Equal(t, "narrow=x", names[21])
	assert.Equal(t, "flag", names[25])
	assert.Equal(t, 25, p.Cardinalities()["wide"])
}

func TestFeaturePipelineDeterministic(t *testing.T) {
	frame := pipelineFrame(t)
	p := BuildFeaturePipeline([]string{"wide", "narrow"}, []string{"num", "flag"}, 20)
	fitted, err := p.FitTransform(frame)
	require.NoError(t, err)

	first, err := p.Transform(frame)
	require.NoError(t, err)
	second, err := p.Transform(frame)
	require.NoError(t, err)

	assert.True(t, mat.Equal(first, second))
	assert.True(t, mat.Equal(fitted, first))
}

func TestFeaturePipelineFrozenVocabulary(t *testing.T) {
	p := BuildFeaturePipeline([]string{"narrow"}, []string{"num"}, 20)
	require.NoError(t, p.Fit(pipelineFrame(t)))
	width := p.Width()

	// a subset with fewer categories still gets the full frozen width
	subset := pipelineFrame(t).Take([]int{0, 3, 6})
	X, err := p.Transform(subset)
	require.NoError(t, err)
	_, c := X.Dims()
	assert.Equal(t, width, c)

	unseen, _ := dataset.NewFrame(
		dataset.NewStringColumn("narrow", []string{"x", "w"}, nil),
		dataset.NewFloatColumn("num", []float64{1, 2}, nil),
	)
	_, err = p.Transform(unseen)
	var uce *scierrors.UnseenCategoryError
	assert.True(t, scierrors.As(err, &uce), "unseen values must not fall into a default bucket")
}

func TestFeaturePipelineSchemaErrors(t *testing.T) {
	frame := pipelineFrame(t)
	var se *scierrors.SchemaError

	_, err := BuildFeaturePipeline([]string{"missing"}, []string{"num"}, 20).FitTransform(frame)
	assert.True(t, scierrors.As(err, &se))

	_, err = BuildFeaturePipeline([]string{"wide"}, []string{"absent"}, 20).FitTransform(frame)
	require.True(t, scierrors.As(err, &se))
	assert.Equal(t, "absent", se.Column)

	// strings cannot be assembled as numeric columns
	_, err = BuildFeaturePipeline(nil, []string{"wide"}, 20).FitTransform(frame)
	assert.True(t, scierrors.As(err, &se))

	_, err = BuildFeaturePipeline(nil, []string{"num"}, 20).Transform(frame)
	var nf *scierrors.NotFittedError
	assert.True(t, scierrors.As(err, &nf))
}

func TestOneHotDropLast(t *testing.T) {
	frame, _ := dataset.NewFrame(dataset.NewIntColumn("i", []int64{0, 1, 2}, nil))
	enc := &OneHotEncoder{InputCol: "i", OutputCol: "o", DropLast: true}
	require.NoError(t, enc.Fit(frame))
	assert.Equal(t, 3, enc.Size)
	assert.Equal(t, 2, enc.Width())

	block, err := enc.Encode(frame)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 1, 0, 0}, block.RawMatrix().Data)
}

func TestAttachWeights(t *testing.T) {
	data, err := dataset.NewLabeled(mat.NewDense(5, 1, nil), []float64{1, 1, 2, 3, 4})
	require.NoError(t, err)

	weighted := AttachWeights(data)
	assert.Nil(t, data.Weight, "input is not modified")
	assert.Equal(t, []float64{2.5, 2.5, 5, 5, 5}, weighted.Weight)

	// weight × count = total, and each class carries equal mass
	counts := map[float64]int{}
	mass := map[float64]float64{}
	for i, l := range weighted.Label {
		counts[l]++
		mass[l] += weighted.Weight[i] / float64(weighted.Len())
	}
	for l, c := range counts {
		assert.InDelta(t, 5.0, ClassWeights(weighted.Label)[l]*float64(c), 1e-12)
		assert.InDelta(t, 1.0, mass[l], 1e-12)
	}

	single, _ := dataset.NewLabeled(mat.NewDense(3, 1, nil), []float64{2, 2, 2})
	assert.Equal(t, []float64{1, 1, 1}, AttachWeights(single).Weight)
	assert.Equal(t, []float64{1, 2, 3, 4}, SortedLabels(ClassWeights(data.Label)))
}

func TestAccidentPreprocessor(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	clock := clockwork.NewFakeClock()
	p := NewAccidentPreprocessor(WithLogger(logger), WithClock(clock))

	raw := datasettest.WithNulls(datasettest.Accidents(300, 7), dataset.ColTemperatureF, 0, 5)
	out, err := p.Preprocess(raw)
	require.NoError(t, err)

	assert.Equal(t, 298, out.Len(), "rows with nulls are dropped")

	width := len(NumericalColumns)
	for _, card := range p.Pipeline().Cardinalities() {
		width += min(card, DefaultClipThreshold+1)
	}
	assert.Equal(t, width, out.Width())
	assert.Equal(t, width, p.Pipeline().Width())
	assert.Len(t, p.Pipeline().Cardinalities(), 13)

	for _, l := range out.Label {
		assert.Contains(t, []float64{1, 2, 3, 4}, l)
	}
	require.Len(t, out.Weight, out.Len())

	assert.True(t, logger.ContainsMessage("Preprocessing finished"))
	assert.True(t, logger.ContainsField(log.SamplesKey, 298.0))
	assert.True(t, logger.ContainsField("rows_dropped", 2.0))
}

func TestAccidentPreprocessorDerivedColumns(t *testing.T) {
	p := NewAccidentPreprocessor()
	derived, err := p.Derive(datasettest.Accidents(20, 3))
	require.NoError(t, err)

	for _, name := range append(append([]string{}, CategoricalColumns...), NumericalColumns...) {
		assert.True(t, derived.Has(name), name)
	}
	for _, name := range supersededColumns {
		assert.False(t, derived.Has(name), name)
	}
	assert.True(t, derived.Has(dataset.ColLabel))
	assert.False(t, derived.Has(dataset.ColSeverity))
}

func TestAccidentPreprocessorSchemaError(t *testing.T) {
	raw := datasettest.Accidents(10, 1).Drop(dataset.ColWeatherTimestamp)
	_, err := NewAccidentPreprocessor().Preprocess(raw)

	var se *scierrors.SchemaError
	require.True(t, scierrors.As(err, &se))
	assert.Equal(t, dataset.ColWeatherTimestamp, se.Column)

	wrongKind, _ := datasettest.Accidents(10, 1).WithColumn(
		dataset.NewStringColumn(dataset.ColTemperatureF, make([]string, 10), nil))
	_, err = NewAccidentPreprocessor().Preprocess(wrongKind)
	assert.True(t, scierrors.As(err, &se))
}

func TestAccidentPreprocessorApplyUnseen(t *testing.T) {
	p := NewAccidentPreprocessor()
	_, err := p.Apply(datasettest.Accidents(5, 1))
	var nf *scierrors.NotFittedError
	require.True(t, scierrors.As(err, &nf))

	train := datasettest.Accidents(100, 11)
	_, err = p.Preprocess(train)
	require.NoError(t, err)

	same, err := p.Apply(train)
	require.NoError(t, err)
	assert.Equal(t, p.Pipeline().Width(), same.Width())

	streets := make([]string, 5)
	for i := range streets {
		streets[i] = "Nowhere Lane"
	}
	fresh, _ := datasettest.Accidents(5, 12).WithColumn(dataset.NewStringColumn(dataset.ColStreet, streets, nil))
	_, err = p.Apply(fresh)
	var uce *scierrors.UnseenCategoryError
	require.True(t, scierrors.As(err, &uce))
	assert.Equal(t, dataset.ColStreet, uce.Column)
}

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
	})
	s := NewStandardScaler(true, true)
	Xs, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, s.Mean[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1], "constant column keeps unit scale")
	assert.InDelta(t, 0.0, Xs.At(0, 1), 1e-12)

	assert.Less(t, Xs.At(0, 0), 0.0)
	assert.InDelta(t, -Xs.At(3, 0), Xs.At(0, 0), 1e-12, "centred column is symmetric")

	_, err = s.Transform(mat.NewDense(1, 3, nil))
	var dimErr *scierrors.DimensionError
	assert.True(t, scierrors.As(err, &dimErr))

	clone := s.Clone().(*StandardScaler)
	assert.False(t, clone.IsFitted())
	require.NoError(t, clone.SetParams(map[string]interface{}{"with_mean": false}))
	assert.False(t, clone.WithMean)
	assert.Error(t, clone.SetParams(map[string]interface{}{"copy": true}))
}
