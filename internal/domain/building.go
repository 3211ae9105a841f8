package domain

// BuildingQuery 一个查询单元：楼栋编号、门禁系统内部 ID、展示用楼栋标签
type BuildingQuery struct {
	Number     string `json:"number"`     // 操作员视角的楼栋编号（如 "4"、"11"）
	InternalID string `json:"internalId"` // 门禁系统内部楼栋 ID
	Label      string `json:"label"`      // 报表展示标签（如 "11A"）
}

// QueryWindow 查询时间窗口
// StartTime/EndTime 为 HH:MM:SS，查询区间为 [昨天+StartTime, 今天+EndTime]；
// StartDate/EndDate（YYYY-MM-DD）仅用于报表文件名的日期区间，可为空
type QueryWindow struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// BuildingRecords 一个楼栋的归一化记录集
// 使用切片而不是 map，保证楼栋顺序稳定（sheet 名称依赖顺序）
type BuildingRecords struct {
	Label   string
	Records []AccessRecord
}
