/**
 * 报告输出接口定义
 * @author: Sun977
 * @date: 2026.01.21
 * @description: 定义分析报告输出的通用接口，解耦 Console/File 输出。
 */

package reporter

import (
	"context"
	"errors"
)

// Reporter 定义报告输出的行为
type Reporter interface {
	// Report 输出一份已渲染的报告
	Report(ctx context.Context, label, report string) error
}

// MultiReporter 支持同时向多个目标输出 (e.g., Console + File)
type MultiReporter struct {
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{
		reporters: reporters,
	}
}

func (m *MultiReporter) Report(ctx context.Context, label, report string) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Report(ctx, label, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
