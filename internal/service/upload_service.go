package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/postdeck/calendar-engine/internal/models"
	"github.com/postdeck/calendar-engine/internal/repository"
)

// UploadService stages media for the draft's shared pool: sniff the
// bytes, push to R2, write the asset row, and hand back a MediaItem
// with a fresh compose-session uid.
type UploadService interface {
	Stage(ctx context.Context, workspaceID int64, file *multipart.FileHeader) (*models.MediaItem, error)
}

type uploadService struct {
	ma repository.MediaAssetRepository
	r2 R2Service
}

func NewUploadService(ma repository.MediaAssetRepository, r2 R2Service) UploadService {
	return &uploadService{ma: ma, r2: r2}
}

var allowedTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
}

func (s *uploadService) Stage(ctx context.Context, workspaceID int64, file *multipart.FileHeader) (*models.MediaItem, error) {
	fileContent, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return nil, errors.New("unsupported file type")
	}
	if _, ok := allowedTypes[fileType.Extension]; !ok {
		return nil, fmt.Errorf("file type %s is not allowed", fileType.Extension)
	}

	key, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if err := s.r2.UploadToR2(ctx, key, fileBytes, fileType.MIME.Value); err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	ma := models.MediaAsset{
		WorkspaceID: workspaceID,
		FileName:    key,
		FileType:    fileType.MIME.Value,
		FileSize:    int64(len(fileBytes)),
		FileURL:     s.r2.PublicURL(key),
	}

	assetID, err := s.ma.Create(ctx, nil, &ma)
	if err != nil {
		return nil, fmt.Errorf("error saving media asset: %w", err)
	}

	mediaType := models.MediaTypeImage
	if strings.HasPrefix(fileType.MIME.Value, "video/") {
		mediaType = models.MediaTypeVideo
	}

	return &models.MediaItem{
		UID:        gonanoid.Must(),
		AssetID:    assetID,
		Type:       mediaType,
		PreviewURL: ma.FileURL,
		SourceURL:  ma.FileURL,
	}, nil
}
