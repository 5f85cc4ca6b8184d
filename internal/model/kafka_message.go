package model

import "time"

// PassMessage là thông tin một lượt sync gửi tới Kafka sau khi cập nhật bảng xếp hạng
type PassMessage struct {
	PassID       string              `json:"pass_id"`
	CursorBefore int64               `json:"cursor_before"`
	CursorAfter  int64               `json:"cursor_after"`
	Processed    int                 `json:"processed"`
	Blocked      int                 `json:"blocked"`
	Failed       int                 `json:"failed"`
	RateLimited  bool                `json:"rate_limited"`
	FinishedAt   time.Time           `json:"finished_at"`
	Repositories []RepositorySummary `json:"repositories"`
}

// TriggerMessage yêu cầu chạy một lượt sync
type TriggerMessage struct {
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}
