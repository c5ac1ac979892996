package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gemini-proxy/internal/config"
	"gemini-proxy/internal/gentypes"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxExtLen 限制保留的扩展名长度，避免把异常文件名写进磁盘路径。
const maxExtLen = 10

// LocalFileStore 实现了 gentypes.FileStore 接口，把上传文件暂存在本地目录中。
type LocalFileStore struct {
	basePath string // 暂存目录，例如 "./uploads"
	maxSize  int64  // 单个文件的最大字节数
	logger   *zap.Logger
	now      func() time.Time
}

// NewLocalFileStore 创建一个新的 LocalFileStore 实例，并确保暂存目录存在。
func NewLocalFileStore(cfg config.UploadConfig, logger *zap.Logger) (*LocalFileStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败 '%s': %w", cfg.Dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalFileStore{
		basePath: cfg.Dir,
		maxSize:  cfg.MaxFileSizeBytes(),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Dir 返回暂存目录。
func (s *LocalFileStore) Dir() string {
	return s.basePath
}

// Store 将文件写入暂存目录。
// 文件名由时间戳和随机后缀组成，并发请求之间不会冲突。
func (s *LocalFileStore) Store(ctx context.Context, reader io.Reader, fileSize int64, fileName string, mimeType string) (*gentypes.UploadedFile, error) {
	if s.maxSize > 0 && fileSize > s.maxSize {
		return nil, s.tooLarge()
	}

	storedName := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.NewString(), safeExt(fileName))
	dstPath := filepath.Join(s.basePath, storedName)

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, gentypes.NewIOError("Failed to store uploaded file", fmt.Errorf("创建目标文件失败 '%s': %w", dstPath, err))
	}

	// 多读一个字节，用来判断实际内容是否超过上限
	src := reader
	if s.maxSize > 0 {
		src = io.LimitReader(reader, s.maxSize+1)
	}
	written, err := io.Copy(dst, src)
	closeErr := dst.Close()

	switch {
	case err != nil:
		s.removeQuietly(dstPath)
		return nil, gentypes.NewIOError("Failed to store uploaded file", fmt.Errorf("写入文件失败: %w", err))
	case closeErr != nil:
		s.removeQuietly(dstPath)
		return nil, gentypes.NewIOError("Failed to store uploaded file", fmt.Errorf("关闭文件失败: %w", closeErr))
	case s.maxSize > 0 && written > s.maxSize:
		s.removeQuietly(dstPath)
		return nil, s.tooLarge()
	case fileSize >= 0 && written != fileSize:
		s.removeQuietly(dstPath)
		return nil, gentypes.NewIOError("Failed to store uploaded file", fmt.Errorf("文件大小不匹配: 预期 %d, 实际写入 %d", fileSize, written))
	}

	s.logger.Debug("上传文件已暂存",
		zap.String("stored", storedName),
		zap.String("original", fileName),
		zap.Int64("size", written))

	return &gentypes.UploadedFile{
		Path:             dstPath,
		StoredName:       storedName,
		OriginalName:     fileName,
		DeclaredMIMEType: mimeType,
		SizeBytes:        written,
	}, nil
}

// Delete 删除暂存文件。文件已不存在时只记录调试日志。
func (s *LocalFileStore) Delete(ctx context.Context, file *gentypes.UploadedFile) {
	if file == nil || file.Path == "" {
		return
	}
	err := os.Remove(file.Path)
	switch {
	case err == nil:
		s.logger.Info("已清理上传文件", zap.String("file", file.StoredName))
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Debug("上传文件已不存在，跳过清理", zap.String("file", file.StoredName))
	default:
		s.logger.Warn("清理上传文件失败", zap.String("file", file.StoredName), zap.Error(err))
	}
}

// List 列出暂存目录中的文件，按修改时间从旧到新排序。
func (s *LocalFileStore) List(ctx context.Context) ([]gentypes.StoredEntry, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("读取上传目录失败 '%s': %w", s.basePath, err)
	}
	files := make([]gentypes.StoredEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// 文件可能在遍历期间被其他请求删除
			continue
		}
		files = append(files, gentypes.StoredEntry{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ModTime.Before(files[j].ModTime) })
	return files, nil
}

// Sweep 删除修改时间早于 olderThan 之前的残留文件 (例如进程崩溃时未清理的文件)，返回删除数量。
func (s *LocalFileStore) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	files, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !f.ModTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.basePath, f.Name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("清理残留文件失败", zap.String("file", f.Name), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *LocalFileStore) tooLarge() error {
	return gentypes.NewUploadTooLargeError(fmt.Sprintf("File too large. Maximum size is %dMB.", s.maxSize>>20))
}

func (s *LocalFileStore) removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("删除未完成的上传文件失败", zap.String("path", path), zap.Error(err))
	}
}

// safeExt 返回小写的原始扩展名，扩展名异常时返回空字符串。
func safeExt(fileName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

var _ gentypes.FileStore = (*LocalFileStore)(nil)
