package classifier

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hr-interviewer/internal/emotion"
	"github.com/spigell/hr-interviewer/internal/httpapi"
)

const (
	DefaultURL     = "http://localhost:5005"
	DefaultWorkers = 4

	analyzePath = "analyze"
)

// Config configures the classifier client.
type Config struct {
	URL     string        `mapstructure:"url"`
	Workers int           `mapstructure:"workers"`
	Timeout time.Duration `mapstructure:"timeout"`
	// MinFaceConfidence drops detections the service is less sure about. Zero keeps all.
	MinFaceConfidence float64 `mapstructure:"min-face-confidence"`
	// Detector selects the face detector backend, empty means the service default.
	Detector string `mapstructure:"detector"`
}

type analyzeRequest struct {
	Image            string   `json:"img"`
	Actions          []string `json:"actions"`
	EnforceDetection bool     `json:"enforce_detection"`
	DetectorBackend  string   `json:"detector_backend,omitempty"`
}

type analyzeResponse struct {
	Results []map[string]any `json:"results"`
}

type faceResult struct {
	Emotion        map[string]float64 `mapstructure:"emotion"`
	Dominant       string             `mapstructure:"dominant_emotion"`
	FaceConfidence float64            `mapstructure:"face_confidence"`
}

// Client talks to a DeepFace-compatible emotion analysis service.
type Client struct {
	api    *httpapi.Client
	cfg    Config
	logger *zap.Logger
}

// New returns a classifier client. Zero config values fall back to defaults.
func New(cfg Config, logger *zap.Logger) *Client {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		api:    httpapi.New(cfg.URL, "", cfg.Timeout, logger),
		cfg:    cfg,
		logger: logger,
	}
}

// Classify returns the emotion distribution of the first face in a JPEG image.
// A nil frame means no face was detected.
func (c *Client) Classify(ctx context.Context, image []byte) (emotion.Frame, error) {
	if len(image) == 0 {
		return nil, errors.New("image must not be empty")
	}

	req := analyzeRequest{
		Image:            "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
		Actions:          []string{"emotion"},
		EnforceDetection: false,
		DetectorBackend:  c.cfg.Detector,
	}

	var resp analyzeResponse
	if err := c.api.PostJSON(ctx, analyzePath, req, &resp); err != nil {
		var statusErr *httpapi.StatusError
		// Some deployments answer 400 when enforce_detection still rejects the frame.
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(statusErr.Body), "face could not be detected") {
			return nil, nil
		}
		return nil, fmt.Errorf("analyze frame: %w", err)
	}

	if len(resp.Results) == 0 {
		return nil, nil
	}

	face, err := decodeFace(resp.Results[0])
	if err != nil {
		return nil, err
	}

	if c.cfg.MinFaceConfidence > 0 && face.FaceConfidence < c.cfg.MinFaceConfidence {
		c.logger.Debug("face confidence below threshold",
			zap.Float64("face_confidence", face.FaceConfidence),
			zap.Float64("min_face_confidence", c.cfg.MinFaceConfidence),
		)
		return nil, nil
	}

	return emotion.FrameFromMap(face.Emotion), nil
}

// ClassifyAll classifies images in parallel and returns frames in input order.
// Frames that fail to classify are logged and treated as having no face. An error is
// returned when the context ends or when every image failed.
func (c *Client) ClassifyAll(ctx context.Context, images [][]byte) ([]emotion.Frame, error) {
	frames := make([]emotion.Frame, len(images))
	failures := make([]error, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)

	for i, image := range images {
		g.Go(func() error {
			frame, err := c.Classify(gctx, image)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				c.logger.Warn("frame classification failed, skipping frame", zap.Int("frame", i), zap.Error(err))
				failures[i] = err
				return nil
			}
			frames[i] = frame
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, err := range failures {
		if err != nil {
			failed++
		}
	}
	if len(images) > 0 && failed == len(images) {
		return nil, fmt.Errorf("classifier failed for all %d frames: %w", failed, failures[0])
	}

	c.logger.Debug("frames classified",
		zap.Int("frames", len(images)),
		zap.Int("failed", failed),
	)

	return frames, nil
}

func decodeFace(raw map[string]any) (faceResult, error) {
	var face faceResult

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &face,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return face, err
	}

	if err := decoder.Decode(raw); err != nil {
		return face, fmt.Errorf("decode classifier result: %w", err)
	}

	return face, nil
}
