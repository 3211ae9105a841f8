package service

import (
	"curfew-report/internal/domain"
)

// NormalizeRecords 归一化一个楼栋的出入记录：
//  1. 宿舍号改写为 "<楼栋标签>-<原宿舍号>"
//  2. 按学号分组，每人只保留 passTimeText 最大（最近一次）的记录
//
// passTimeText 为定宽补零格式（YYYY-MM-DD HH:MM:SS），字典序即时间序。
// 同一学号出现相同 passTimeText 时保留先拉取到的一条；
// 输出顺序为学号首次出现的顺序
func NormalizeRecords(records []domain.AccessRecord, buildingLabel string) []domain.AccessRecord {
	latest := make(map[string]int, len(records))
	kept := make([]domain.AccessRecord, 0, len(records))

	for _, record := range records {
		record.RoomName = buildingLabel + "-" + record.RoomName
		userID := record.UserID.String()

		idx, seen := latest[userID]
		if !seen {
			latest[userID] = len(kept)
			kept = append(kept, record)
			continue
		}
		// 严格大于才替换，平局保留先到的记录
		if record.PassTimeText > kept[idx].PassTimeText {
			kept[idx] = record
		}
	}
	return kept
}
