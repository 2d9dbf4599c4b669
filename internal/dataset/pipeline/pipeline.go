// Package pipeline runs one upload through every ingestion stage: format
// routing, loading, label resolution, splitting, validation, reshaping,
// normalization, label encoding and persistence.
package pipeline

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/archive"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/arrays"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/format"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/images"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/labels"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/persist"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/split"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/tensor"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/transform"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/internal/dataset/validate"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Dataset-Ingestion-Platform/pkg/tracing"
)

// Stage names, used for spans and the stage duration metric.
const (
	StageLoad      = "load"
	StageExtract   = "extract"
	StageCollect   = "collect"
	StageDecode    = "decode"
	StageSplit     = "split"
	StageValidate  = "validate"
	StageReshape   = "reshape"
	StageNormalize = "normalize"
	StageEncode    = "encode"
	StagePersist   = "persist"
)

// Result summarises a persisted dataset.
type Result struct {
	DatasetID     string
	Format        string
	Shapes        map[string][]int
	Classes       []string
	Dir           string
	SkippedImages int
	Duration      time.Duration
}

// Samples returns the train and test sample counts.
func (r *Result) Samples() (train, test int) {
	if s := r.Shapes[dataset.XTrain]; len(s) > 0 {
		train = s[0]
	}
	if s := r.Shapes[dataset.XTest]; len(s) > 0 {
		test = s[0]
	}
	return train, test
}

// Pipeline holds the process-wide settings every run shares. It is safe for
// concurrent use.
type Pipeline struct {
	cfg       config.DatasetConfig
	target    transform.Shape
	decoder   images.Decoder
	policy    transform.Policy
	persister *persist.Persister
	metrics   *metrics.Metrics
	tracing   bool
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithMetrics records stage durations and outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTracing logs the span tree of every run.
func WithTracing(enabled bool) Option {
	return func(p *Pipeline) { p.tracing = enabled }
}

// New builds a pipeline from validated dataset settings.
func New(cfg config.DatasetConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		target:    transform.Shape{H: cfg.Height(), W: cfg.Width(), C: cfg.Channels()},
		policy:    transform.Policy{Mode: cfg.Normalization, Scale: cfg.FixedScale},
		persister: persist.New(cfg.DataRoot),
	}
	p.decoder = images.Decoder{Target: p.target, MaxPixels: cfg.MaxImagePixels}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run carries the state of a single upload through the stages.
type run struct {
	loaded  *dataset.Loaded
	split   *dataset.Split
	tokens  []string
	classes []string
	skipped int
}

// Run ingests one upload. The first failing stage aborts the run; any
// scratch area is removed before Run returns, whatever the outcome.
func (p *Pipeline) Run(ctx context.Context, up dataset.Upload) (res *Result, err error) {
	start := time.Now()
	ctx = logger.WithDatasetID(ctx, up.DatasetID)
	log := logger.FromContext(ctx).With("component", "pipeline")

	f, err := format.Detect(up.Filename)
	defer func() { p.recordOutcome(f, err) }()
	if err != nil {
		return nil, err
	}

	traceID := logger.RequestID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	ctx, root := tracing.StartSpan(ctx, "ingest", traceID)
	root.SetAttr("dataset_id", up.DatasetID)
	root.SetAttr("format", f.String())
	defer func() {
		root.EndErr(err)
		if p.tracing {
			root.Log()
		}
	}()

	r := &run{}
	switch f {
	case format.PackedArray:
		err = p.stage(ctx, StageLoad, func(ctx context.Context) error {
			named, err := arrays.LoadNPZ(ctx, up.Body, up.Size, p.cfg.MaxExtractBytes)
			if err != nil {
				return err
			}
			r.loaded, err = arrays.Resolve(named)
			return err
		})
	case format.ImageArchive:
		var scratch *archive.Scratch
		scratch, err = archive.Acquire(p.cfg.ScratchRoot)
		if err != nil {
			return nil, err
		}
		defer scratch.Release()
		err = p.loadImages(ctx, up, scratch, r)
	}
	if err != nil {
		return nil, err
	}

	if err = p.stage(ctx, StageSplit, func(context.Context) error { return p.resolveSplit(r) }); err != nil {
		return nil, err
	}
	if err = p.stage(ctx, StageValidate, func(context.Context) error { return validate.Split(r.split) }); err != nil {
		return nil, err
	}
	if err = p.stage(ctx, StageReshape, func(context.Context) error { return p.reshape(r.split) }); err != nil {
		return nil, err
	}
	if err = p.stage(ctx, StageNormalize, func(context.Context) error {
		return transform.Normalize(r.split.XTrain, r.split.XTest, p.policy)
	}); err != nil {
		return nil, err
	}
	if err = p.stage(ctx, StageEncode, func(context.Context) error { return p.encode(r) }); err != nil {
		return nil, err
	}

	var dir string
	if err = p.stage(ctx, StagePersist, func(ctx context.Context) error {
		var err error
		dir, err = p.persister.Write(ctx, up.DatasetID, r.split, r.classes)
		return err
	}); err != nil {
		return nil, err
	}

	res = &Result{
		DatasetID:     up.DatasetID,
		Format:        f.String(),
		Shapes:        make(map[string][]int, 4),
		Classes:       r.classes,
		Dir:           dir,
		SkippedImages: r.skipped,
		Duration:      time.Since(start),
	}
	for name, a := range r.split.Named() {
		res.Shapes[name] = a.Shape
	}
	p.observeSamples(res)
	log.Info("dataset ingested",
		"format", res.Format,
		"x_train", tensor.ShapeString(res.Shapes[dataset.XTrain]),
		"x_test", tensor.ShapeString(res.Shapes[dataset.XTest]),
		"classes", len(res.Classes),
		"skipped_images", res.SkippedImages,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := tracing.StartChildSpan(ctx, name)
	start := time.Now()
	err := fn(ctx)
	span.EndErr(err)
	if p.metrics != nil {
		p.metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
	return err
}

func (p *Pipeline) loadImages(ctx context.Context, up dataset.Upload, scratch *archive.Scratch, r *run) error {
	limits := archive.Limits{MaxFiles: p.cfg.MaxArchiveFiles, MaxBytes: p.cfg.MaxExtractBytes}
	if err := p.stage(ctx, StageExtract, func(ctx context.Context) error {
		return archive.Extract(ctx, up.Body, up.Size, scratch.Dir(), limits)
	}); err != nil {
		return err
	}

	var found []dataset.Image
	if err := p.stage(ctx, StageCollect, func(ctx context.Context) error {
		var err error
		found, err = archive.CollectImages(ctx, scratch.Dir())
		return err
	}); err != nil {
		return err
	}
	assignLabels(found, p.cfg.LabelSeparator)
	r.loaded = &dataset.Loaded{Kind: dataset.Images, Images: found}

	return p.stage(ctx, StageDecode, func(ctx context.Context) error {
		return p.decodeImages(ctx, r)
	})
}

// assignLabels sets the token and partition of every image.
func assignLabels(found []dataset.Image, sep string) {
	rels := make([]string, len(found))
	for i, img := range found {
		rels[i] = img.Rel
	}
	test, stripped, preSplit := labels.PreSplit(rels)
	for i := range found {
		if !preSplit {
			found[i].Token = labels.Token(found[i].Rel, sep)
			continue
		}
		found[i].Token = labels.Token(stripped[i], sep)
		found[i].Partition = dataset.Train
		if test[i] {
			found[i].Partition = dataset.Test
		}
	}
}

// decodeImages replaces the image list in r.loaded with feature arrays and
// integer labels. Undecodable images are logged and skipped; an archive in
// which no image decodes has no usable images.
func (p *Pipeline) decodeImages(ctx context.Context, r *run) error {
	found := r.loaded.Images
	log := logger.FromContext(ctx).With("component", "pipeline")
	var (
		ok     []dataset.Image
		pixels [][]float64
	)
	for _, img := range found {
		if err := ctx.Err(); err != nil {
			return err
		}
		sample, err := p.decoder.DecodeFile(img.Path)
		if err != nil {
			r.skipped++
			log.Warn("skipping unreadable image", "path", img.Rel, "error", err)
			continue
		}
		ok = append(ok, img)
		pixels = append(pixels, sample)
	}
	if r.skipped > 0 && p.metrics != nil {
		p.metrics.ImagesSkippedTotal.Add(float64(r.skipped))
	}
	if len(ok) == 0 {
		return apperrors.Failure(apperrors.ErrNoImagesFound,
			"none of the %d image files could be decoded", len(found))
	}

	tokens := make([]string, len(ok))
	for i, img := range ok {
		tokens[i] = img.Token
	}
	mapping := labels.NewMapping(tokens)
	r.tokens = mapping.Tokens()

	x, err := tensor.Stack(pixels, p.target.Dims())
	if err != nil {
		return err
	}
	y := tensor.New(len(ok))
	for i, tok := range tokens {
		id, _ := mapping.ID(tok)
		y.Data[i] = float64(id)
	}

	if ok[0].Partition == dataset.Unassigned {
		r.loaded = &dataset.Loaded{Kind: dataset.Unsplit, Arrays: map[string]*tensor.Array{dataset.X: x, dataset.Y: y}}
		return nil
	}
	var trainIdx, testIdx []int
	for i, img := range ok {
		if img.Partition == dataset.Test {
			testIdx = append(testIdx, i)
		} else {
			trainIdx = append(trainIdx, i)
		}
	}
	r.loaded = &dataset.Loaded{Kind: dataset.PreSplit, Arrays: map[string]*tensor.Array{
		dataset.XTrain: x.Take(trainIdx),
		dataset.XTest:  x.Take(testIdx),
		dataset.YTrain: y.Take(trainIdx),
		dataset.YTest:  y.Take(testIdx),
	}}
	return nil
}

func (p *Pipeline) resolveSplit(r *run) error {
	a := r.loaded.Arrays
	switch r.loaded.Kind {
	case dataset.PreSplit:
		r.split = &dataset.Split{
			XTrain: a[dataset.XTrain],
			XTest:  a[dataset.XTest],
			YTrain: a[dataset.YTrain],
			YTest:  a[dataset.YTest],
		}
		return nil
	case dataset.Unsplit:
		var err error
		r.split, err = split.TrainTest(a[dataset.X], a[dataset.Y], p.cfg.SplitRatio, split.NewRand(p.cfg.SplitSeed))
		return err
	}
	return apperrors.Failure(apperrors.ErrMissingArrays, "loader produced no arrays")
}

func (p *Pipeline) reshape(s *dataset.Split) error {
	var err error
	if s.XTrain, err = transform.Reshape(s.XTrain, p.target); err != nil {
		return err
	}
	s.XTest, err = transform.Reshape(s.XTest, p.target)
	return err
}

// encode one-hot encodes the labels and names every column. Image labels
// are class ids into r.tokens; array labels name themselves.
func (p *Pipeline) encode(r *run) error {
	yTrain, yTest, mapping, err := transform.OneHot(r.split.YTrain, r.split.YTest)
	if err != nil {
		return err
	}
	r.split.YTrain, r.split.YTest = yTrain, yTest
	r.classes = mapping.Tokens()
	if r.tokens == nil {
		return nil
	}
	for i, tok := range r.classes {
		id, err := strconv.Atoi(tok)
		if err != nil || id < 0 || id >= len(r.tokens) {
			return errors.New("image class id out of range")
		}
		r.classes[i] = r.tokens[id]
	}
	return nil
}

func (p *Pipeline) recordOutcome(f format.Format, err error) {
	if p.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = apperrors.Kind(err)
	}
	p.metrics.UploadsTotal.WithLabelValues(f.String(), outcome).Inc()
}

func (p *Pipeline) observeSamples(res *Result) {
	if p.metrics == nil {
		return
	}
	train, test := res.Samples()
	p.metrics.DatasetSamples.WithLabelValues("train").Observe(float64(train))
	p.metrics.DatasetSamples.WithLabelValues("test").Observe(float64(test))
}
