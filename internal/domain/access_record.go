package domain

import "encoding/json"

// AccessRecord 公寓门禁系统的一条出入记录
// 字段名与门禁系统分页接口返回的 rows 元素保持一致
type AccessRecord struct {
	UserID              json.Number `json:"userId"`              // 学号（接口可能返回数字或字符串）
	UserName            string      `json:"userName"`            // 姓名
	RoomName            string      `json:"roomName"`            // 宿舍号（归一化后改写为 "<楼栋>-<宿舍>"）
	SchoolInstituteName string      `json:"schoolInstituteName"` // 学院全称
	Grade               json.Number `json:"grade"`               // 年级
	PassTimeText        string      `json:"passTimeText"`        // 通行时间，格式 YYYY-MM-DD HH:MM:SS
}
