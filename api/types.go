package api

import "time"

// =============================================================================
// 📦 API 请求/响应类型
// =============================================================================

// AskRequest 同步问答请求
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse 同步问答响应
type AskResponse struct {
	Answer string `json:"answer"`
	Source string `json:"source"` // cache | live
}

// SubmitJobRequest 异步作业提交请求
type SubmitJobRequest struct {
	Question string `json:"question"`
}

// SubmitJobResponse 异步作业提交响应
type SubmitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobStatusResponse 作业状态查询响应
type JobStatusResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Answer    string    `json:"answer,omitempty"`
	Source    string    `json:"source,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
