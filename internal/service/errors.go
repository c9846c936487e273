package service

import (
	"errors"
	"fmt"
)

var (
	ErrCompanyIDRequired = errors.New("company_id 不能为空")
	ErrSnapshotNotFound  = errors.New("快照不存在")
	ErrCompanyNotFound   = errors.New("公司不存在")
	ErrBackfillRunning   = errors.New("回填正在进行中")
	ErrUpstream          = errors.New("账单平台请求失败")
)

// UpstreamError 账单平台调用失败，整次计算作废
type UpstreamError struct {
	Resource string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
