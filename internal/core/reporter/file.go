package reporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileReporter 负责将报告保存为 markdown 文件
type FileReporter struct {
	FilePath string
}

func NewFileReporter(filePath string) *FileReporter {
	return &FileReporter{
		FilePath: filePath,
	}
}

// Report 覆盖写入，目录不存在时创建
func (r *FileReporter) Report(ctx context.Context, label, report string) error {
	if dir := filepath.Dir(r.FilePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(r.FilePath, []byte(report), 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", label, err)
	}
	return nil
}
