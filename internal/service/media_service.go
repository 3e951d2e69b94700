package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"watchlearn/internal/config"
	"watchlearn/internal/util"
	"watchlearn/pkg/logger"

	"go.uber.org/zap"
)

// StoredMedia describes an uploaded object.
type StoredMedia struct {
	Key       string  `json:"key"`
	URL       string  `json:"url"`
	PosterURL string  `json:"posterUrl,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
}

// MediaService validates uploads and pushes them to storage. Videos are
// probed with ffprobe and get a poster frame when probing is enabled.
type MediaService struct {
	Storage *StorageService
	Cfg     *config.MediaConfig

	probe     func(path string) (*util.VideoInfo, error)
	thumbnail func(videoPath, imagePath, offset string) error
}

func NewMediaService(storage *StorageService, cfg *config.MediaConfig) *MediaService {
	return &MediaService{
		Storage:   storage,
		Cfg:       cfg,
		probe:     util.GetVideoInfo,
		thumbnail: util.GenerateThumbnail,
	}
}

// SaveImage stores an image upload under folder.
func (s *MediaService) SaveImage(ctx context.Context, folder string, fh *multipart.FileHeader) (*StoredMedia, error) {
	if fh.Size > util.MaxImageSize {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", util.ErrInvalidFileType, util.MaxImageSize)
	}
	if !util.HasExtension(fh.Filename, util.AllowedImageExtensions) {
		return nil, util.ErrInvalidFileType
	}
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	mimeType, err := util.ValidateMimeType(file, []string{util.MimeImage})
	if err != nil {
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key := NewKey(folder, fh.Filename)
	url, err := s.Storage.Upload(ctx, key, file, fh.Size, mimeType)
	if err != nil {
		return nil, err
	}
	return &StoredMedia{Key: key, URL: url}, nil
}

// SaveVideo stores a video upload under folder. The file is spooled to
// disk first since ffprobe needs a path.
func (s *MediaService) SaveVideo(ctx context.Context, folder string, fh *multipart.FileHeader) (*StoredMedia, error) {
	if fh.Size > util.MaxVideoSize {
		return nil, fmt.Errorf("%w: video exceeds %d bytes", util.ErrInvalidFileType, util.MaxVideoSize)
	}
	if !util.HasExtension(fh.Filename, util.AllowedVideoExtensions) {
		return nil, util.ErrInvalidFileType
	}

	tmp, err := os.MkdirTemp(s.Cfg.TempDir, "watchlearn-video-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	local := filepath.Join(tmp, "upload"+filepath.Ext(fh.Filename))
	if err := spool(fh, local); err != nil {
		return nil, err
	}

	key := NewKey(folder, fh.Filename)
	media := &StoredMedia{Key: key}

	if s.Cfg.ProbeVideos {
		info, err := s.probe(local)
		if err != nil {
			return nil, fmt.Errorf("%w: not a readable video", util.ErrInvalidFileType)
		}
		media.Duration, media.Width, media.Height = info.Duration, info.Width, info.Height

		poster := filepath.Join(tmp, "poster.jpg")
		if err := s.thumbnail(local, poster, s.Cfg.ThumbnailOffset); err != nil {
			logger.Log.Warn("Poster extraction failed", zap.String("key", key), zap.Error(err))
		} else if url, err := s.Storage.UploadFile(ctx, key+".jpg", poster, "image/jpeg"); err != nil {
			logger.Log.Warn("Poster upload failed", zap.String("key", key), zap.Error(err))
		} else {
			media.PosterURL = url
		}
	}

	url, err := s.Storage.UploadFile(ctx, key, local, fh.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	media.URL = url
	return media, nil
}

// Remove deletes an object, logging instead of failing.
func (s *MediaService) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.Storage.Delete(ctx, key); err != nil {
		logger.Log.Warn("Failed to delete stored media", zap.String("key", key), zap.Error(err))
	}
}

func spool(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
