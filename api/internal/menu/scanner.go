package menu

import (
	"context"
	"errors"
	"time"

	apperrors "allergen-scan/api/internal/errors"
	"allergen-scan/api/internal/logger"
	"allergen-scan/api/internal/util"

	"github.com/sirupsen/logrus"
)

const collaboratorTimeout = 5 * time.Second

// Scanner runs one request through the pipeline: normalize the image, build
// the prompt, call the model, extract and shape the items. It keeps no state
// between calls and is safe for concurrent use.
type Scanner struct {
	engine   Inferencer
	timeout  time.Duration
	recorder Recorder
	archiver Archiver
	now      func() time.Time
}

type Option func(*Scanner)

// WithTimeout bounds the inference call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) { s.timeout = d }
}

func WithRecorder(r Recorder) Option {
	return func(s *Scanner) { s.recorder = r }
}

func WithArchiver(a Archiver) Option {
	return func(s *Scanner) { s.archiver = a }
}

func NewScanner(engine Inferencer, opts ...Option) *Scanner {
	s := &Scanner{
		engine:  engine,
		timeout: 60 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scanner) EngineName() string { return s.engine.Name() }

// Scan validates req against v and runs the pipeline, stopping at the first
// failure. Validation errors are returned before the model is contacted.
func (s *Scanner) Scan(ctx context.Context, v Variant, req ScanRequest) (Result, error) {
	if err := v.Validate(req); err != nil {
		return Result{}, err
	}

	img, err := util.DecodeImage(req.Image)
	if err != nil {
		return Result{}, err
	}
	hash := util.SHA256Hex(img.Data)
	log := logger.WithFields(logrus.Fields{
		"variant":        v.Name,
		"prompt_version": v.Prompt.Version,
		"engine":         s.engine.Name(),
		"image_hash":     hash,
		"image_bytes":    len(img.Data),
		"mime":           img.MIMEType,
	})

	start := s.now()
	raw, err := s.generate(ctx, BuildRequest(v, img))
	latency := s.now().Sub(start)
	if err != nil {
		upstream := err.Error()
		if appErr, ok := apperrors.As(err); ok {
			upstream = appErr.Detail
		}
		log.WithError(err).WithFields(logrus.Fields{
			"upstream":   upstream,
			"latency_ms": latency.Milliseconds(),
		}).Error("Inference call failed")
		return Result{}, err
	}

	rawItems, err := Extract(raw)
	var items []Item
	if err == nil {
		items, err = ShapeItems(rawItems, v.WithCertainty, raw)
	}
	if err != nil {
		log.WithError(err).WithField("raw_reply", raw).Error("Could not parse inference reply")
		s.archive(ctx, v, hash, raw, err)
		return Result{}, err
	}

	log.WithFields(logrus.Fields{
		"items":      len(items),
		"latency_ms": latency.Milliseconds(),
	}).Info("Menu scanned")

	res := Result{
		Variant:       v.Name,
		PromptVersion: v.Prompt.Version,
		Engine:        s.engine.Name(),
		ImageHash:     hash,
		Items:         items,
		Latency:       latency,
	}
	s.record(ctx, req, res)
	return res, nil
}

// generate wraps the single blocking step. Whatever the engine returns is
// reported as an InferenceFailure; nothing is retried here.
func (s *Scanner) generate(ctx context.Context, req InferenceRequest) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	raw, err := s.engine.Generate(ctx, req)
	if err == nil {
		return raw, nil
	}
	if apperrors.IsKind(err, apperrors.KindInferenceFailure) {
		return "", err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "", apperrors.NewInferenceFailure("inference timed out after "+s.timeout.String(), err)
	}
	return "", apperrors.NewInferenceFailure(err.Error(), err)
}

func (s *Scanner) record(ctx context.Context, req ScanRequest, res Result) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), collaboratorTimeout)
	defer cancel()

	rec := Record{
		Variant:        res.Variant,
		PromptVersion:  res.PromptVersion,
		Engine:         res.Engine,
		ImageHash:      res.ImageHash,
		RestaurantName: req.RestaurantName,
		Location:       req.Location(),
		Source:         req.Source,
		Items:          res.Items,
		CreatedAt:      s.now(),
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		logger.WithError(err).WithField("image_hash", res.ImageHash).Warn("Could not record scan")
	}
}

func (s *Scanner) archive(ctx context.Context, v Variant, hash, raw string, cause error) {
	if s.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), collaboratorTimeout)
	defer cancel()

	reason := cause.Error()
	if appErr, ok := apperrors.As(cause); ok {
		reason = appErr.Message
	}
	rep := ParseFailureReport{
		Variant:       v.Name,
		PromptVersion: v.Prompt.Version,
		Engine:        s.engine.Name(),
		ImageHash:     hash,
		Reason:        reason,
		RawReply:      raw,
		At:            s.now().UTC(),
	}
	if err := s.archiver.ArchiveParseFailure(ctx, rep); err != nil {
		logger.WithError(err).WithField("image_hash", hash).Warn("Could not archive parse failure")
	}
}
