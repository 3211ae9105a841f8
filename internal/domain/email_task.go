package domain

// EmailTask 定时邮件任务：按 cron 表达式生成晚归报表并发送给收件人
type EmailTask struct {
	ID             int64    `json:"id"`
	TaskName       string   `json:"taskName"`
	Username       string   `json:"username"`   // 操作员身份，决定报表输出目录
	Buildings      []string `json:"buildings"`  // 楼栋编号列表
	Recipients     []string `json:"recipients"` // 收件人邮箱列表
	SubjectPrefix  string   `json:"subjectPrefix"`
	StartTime      string   `json:"startTime"` // HH:MM:SS，晚归窗口起点（昨天）
	EndTime        string   `json:"endTime"`   // HH:MM:SS，晚归窗口终点（今天）
	CronExpression string   `json:"cronExpression"`
	Enabled        bool     `json:"enabled"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

// 任务执行状态
const (
	TaskStatusRunning     = "running"
	TaskStatusSuccess     = "success"
	TaskStatusFailed      = "failed"
	TaskStatusEmailFailed = "email_failed" // 报表生成成功但邮件发送失败
)

// TaskLog 一次任务执行的记录
type TaskLog struct {
	ID           string `json:"id"` // UUID
	TaskID       int64  `json:"taskId"`
	Username     string `json:"username"`
	Status       string `json:"status"`
	FilePath     string `json:"filePath,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// OperationLog Web 端操作审计记录
type OperationLog struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Action    string `json:"action"` // "query" / "download" / "login" 等
	Detail    string `json:"detail,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
	CreatedAt string `json:"createdAt"`
}
