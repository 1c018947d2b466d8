package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/classifier"
	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/logging"
	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/repository"
)

const classificationCacheTTL = time.Hour

// Location is a geographic coordinate pair submitted with a report.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ReportSubmission carries one raw upload through the ingestion pipeline.
// The disaster type hint is opaque text and is stored verbatim.
type ReportSubmission struct {
	Filename     string
	Image        []byte
	DisasterType string
	LocationJSON string
}

// DisasterStore defines the persistence operations needed by the pipeline.
type DisasterStore interface {
	Insert(ctx context.Context, record *repository.DisasterRecord) (string, error)
	ListAll(ctx context.Context) ([]repository.DisasterRecord, error)
}

// ReportUseCase is the disaster-report ingestion pipeline: it validates a
// submission, materializes the image to a per-request scratch file, runs
// inference, and records the classified report alongside its location.
type ReportUseCase struct {
	store      DisasterStore
	cache      Cache
	classifier classifier.Client
	scratchDir string
	logger     *zap.Logger
}

// NewReportUseCase constructs the pipeline with its collaborators.
func NewReportUseCase(store DisasterStore, cache Cache, client classifier.Client, logger *zap.Logger) *ReportUseCase {
	return &ReportUseCase{
		store:      store,
		cache:      cache,
		classifier: client,
		scratchDir: os.TempDir(),
		logger:     logger.Named("report_usecase"),
	}
}

// SubmitReport runs one submission through the pipeline and returns the
// classification. A record is written only after successful inference; an
// insert failure is logged but does not fail the request, so the caller
// still receives the classification (fire-and-forget write). Inference and
// insert get a single attempt each.
func (uc *ReportUseCase) SubmitReport(ctx context.Context, submission ReportSubmission) (*classifier.Result, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.submit_report", requestID)

	if len(submission.Image) == 0 {
		return nil, ErrMissingImage
	}
	if !acceptedExtension(submission.Filename) {
		return nil, ErrUnsupportedFormat
	}
	location, err := parseLocation(submission.LocationJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLocation, err)
	}

	scratch := filepath.Join(uc.scratchDir, fmt.Sprintf("report-%s.jpg", requestID))
	if err := os.WriteFile(scratch, submission.Image, 0600); err != nil {
		wrapped := logging.NewOperationError("usecase.write_scratch", requestID, err)
		opLogger.Error("failed to materialize upload", zap.Error(wrapped))
		return nil, wrapped
	}
	defer os.Remove(scratch)

	result, err := uc.classify(ctx, requestID, scratch, submission.Image)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrInferenceFailed, err)
		opLogger.Error("inference failed", zap.Error(wrapped))
		return nil, wrapped
	}

	record := &repository.DisasterRecord{
		Category:  result.Label,
		Type:      submission.DisasterType,
		Latitude:  location.Lat,
		Longitude: location.Lon,
	}
	if id, err := uc.store.Insert(ctx, record); err != nil {
		// Inference already succeeded; the write is best effort and the
		// caller still gets the classification.
		opLogger.Error("failed to persist disaster record",
			zap.Error(logging.NewOperationError("usecase.insert_record", requestID, fmt.Errorf("%w: %v", ErrStorageFailed, err))))
	} else {
		opLogger.Info("disaster record stored",
			zap.String("record_id", id),
			zap.String("category", result.Label))
	}

	return result, nil
}

// ListDisasters returns every stored record for the map overlay.
func (uc *ReportUseCase) ListDisasters(ctx context.Context) ([]repository.DisasterRecord, error) {
	records, err := uc.store.ListAll(ctx)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrStorageFailed, err)
		logging.WithOperation(uc.logger, "usecase.list_disasters", "").Error("failed to list records", zap.Error(wrapped))
		return nil, wrapped
	}
	return records, nil
}

// classify runs inference with a best-effort cache probe keyed by the SHA-1
// of the image bytes. Inference is deterministic for fixed bytes, so a warm
// hit is always valid. Cache failures never fail the pipeline.
func (uc *ReportUseCase) classify(ctx context.Context, requestID, imagePath string, imageBytes []byte) (*classifier.Result, error) {
	hash := sha1.Sum(imageBytes)
	cacheKey := fmt.Sprintf("classification:%s", hex.EncodeToString(hash[:]))
	opLogger := logging.WithOperation(uc.logger, "usecase.classify", requestID)

	if cached, err := uc.cache.Get(ctx, cacheKey); err == nil {
		var result classifier.Result
		decodeErr := json.Unmarshal([]byte(cached), &result)
		if decodeErr == nil {
			opLogger.Debug("classification served from cache", zap.String("label", result.Label))
			return &result, nil
		}
		opLogger.Warn("failed to decode cached classification", zap.Error(decodeErr))
	} else if !errors.Is(err, redis.Nil) {
		opLogger.Warn("failed to read classification cache", zap.Error(err))
	}

	result, err := uc.classifier.Classify(ctx, imagePath)
	if err != nil {
		return nil, err
	}

	if serialized, err := json.Marshal(result); err == nil {
		if err := uc.cache.Set(ctx, cacheKey, string(serialized), classificationCacheTTL); err != nil {
			opLogger.Warn("failed to cache classification", zap.Error(err))
		}
	}

	return result, nil
}

// acceptedExtension reports whether the uploaded filename carries one of the
// whitelisted image extensions. The whitelist is fixed: .jpg and .jpeg only.
func acceptedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".jpg" || ext == ".jpeg"
}

func parseLocation(raw string) (*Location, error) {
	var payload struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}
	if payload.Lat == nil || payload.Lon == nil {
		return nil, errors.New("lat and lon are required")
	}

	lat, lon := *payload.Lat, *payload.Lon
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("latitude out of range: %v", lat)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("longitude out of range: %v", lon)
	}
	return &Location{Lat: lat, Lon: lon}, nil
}
