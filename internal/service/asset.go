package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"examia/internal/apperr"
	"examia/internal/auth"
	"examia/internal/model"
	"examia/internal/storage"
)

// AssetPrefix namespaces every stored solution image.
const AssetPrefix = "solutions"

const defaultContentType = "image/png"

// ErrStore marks an upload that decoded fine but could not be written to object storage.
var ErrStore = errors.New("object storage write failed")

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

	contentTypeByExt = map[string]string{
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".webp": "image/webp",
	}
)

// AssetService stores solution images and returns their public locators.
type AssetService interface {
	Upload(ctx context.Context, req model.UploadRequest, c auth.Capability) (*model.ImageAsset, error)
}

type assetService struct {
	gate  Authorizer
	store storage.Storage
	now   func() time.Time

	mu     sync.Mutex
	lastTS int64
}

// NewAssetService constructs an AssetService writing to store.
func NewAssetService(gate Authorizer, store storage.Storage) AssetService {
	return &assetService{gate: gate, store: store, now: time.Now}
}

func (s *assetService) Upload(ctx context.Context, req model.UploadRequest, c auth.Capability) (*model.ImageAsset, error) {
	ctx, span := tracer.Start(ctx, "asset.upload")
	defer span.End()

	if err := s.gate.Authorize(c); err != nil {
		return nil, err
	}
	if blank(req.ImageData) {
		return nil, apperr.Validation("imageData is required")
	}
	if blank(req.FileName) {
		return nil, apperr.Validation("fileName is required")
	}

	payload, hint := splitDataURL(req.ImageData)
	if isImageType(req.MimeType) {
		hint = req.MimeType
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, apperr.Upload(err, "invalid image data")
	}
	if len(raw) == 0 {
		return nil, apperr.Upload(errors.New("decoded payload is empty"), "invalid image data")
	}

	safe := SanitizeFileName(req.FileName)
	ct := ContentType(safe, hint)
	key := fmt.Sprintf("%s/%d-%s", AssetPrefix, s.nextTimestamp(), safe)
	span.SetAttributes(
		attribute.String("asset.key", key),
		attribute.String("asset.content_type", ct),
		attribute.Int("asset.size", len(raw)),
	)

	info, err := s.store.Put(ctx, key, bytes.NewReader(raw), storage.PutObjectOptions{
		Size:        int64(len(raw)),
		ContentType: ct,
		Metadata:    map[string]string{"original-filename": req.FileName},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "put failed")
		return nil, apperr.Upload(fmt.Errorf("%w: %w", ErrStore, err), "could not store image")
	}
	if info.Key != "" {
		key = info.Key
	}

	return &model.ImageAsset{
		URL:         s.store.PublicURL(key),
		ContentType: ct,
		StoragePath: key,
	}, nil
}

// nextTimestamp returns a millisecond timestamp strictly greater than the previous one.
func (s *assetService) nextTimestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now().UnixMilli()
	if ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	s.lastTS = ts
	return ts
}

// splitDataURL strips a "data:<mime>;base64," prefix and returns the mime type it named.
func splitDataURL(data string) (payload, mime string) {
	if !strings.HasPrefix(data, "data:") {
		return data, ""
	}
	header, rest, ok := strings.Cut(data, ",")
	if !ok {
		return data, ""
	}
	mime = strings.TrimPrefix(header, "data:")
	mime = strings.TrimSuffix(mime, ";base64")
	return rest, mime
}

// SanitizeFileName replaces every character outside [a-zA-Z0-9._-] with an underscore.
func SanitizeFileName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// ContentType resolves the stored content type: an image/* hint wins, then the
// file extension, then image/png.
func ContentType(fileName, hint string) string {
	if isImageType(hint) {
		return hint
	}
	if ct, ok := contentTypeByExt[strings.ToLower(path.Ext(fileName))]; ok {
		return ct
	}
	return defaultContentType
}

func isImageType(mime string) bool {
	return strings.HasPrefix(strings.ToLower(mime), "image/")
}
