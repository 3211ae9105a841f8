package domain

// 培养层次
const (
	ProgramGraduate      = "研究生"
	ProgramUndergraduate = "本科"
)

// ClassificationTable 培养层次判定表
// 规则按优先级：宿舍号命中例外列表 -> 本科；楼栋命中研究生楼栋 -> 研究生；否则本科。
// 作为数据资产存放在 system_config（key: classify_cfg），而不是写死在逻辑里
type ClassificationTable struct {
	GraduateBuildings  []string `json:"graduateBuildings"`  // 研究生楼栋标签
	UndergraduateRooms []string `json:"undergraduateRooms"` // 研究生楼栋内的本科宿舍（完整 "<楼栋>-<宿舍>"）
}

// Classify 根据改写后的宿舍号 "<楼栋>-<宿舍>" 判定培养层次
func (t ClassificationTable) Classify(roomLabel string) string {
	for _, room := range t.UndergraduateRooms {
		if roomLabel == room {
			return ProgramUndergraduate
		}
	}
	building := roomLabel
	for i := 0; i < len(roomLabel); i++ {
		if roomLabel[i] == '-' {
			building = roomLabel[:i]
			break
		}
	}
	for _, b := range t.GraduateBuildings {
		if building == b {
			return ProgramGraduate
		}
	}
	return ProgramUndergraduate
}

// DefaultClassificationTable 默认判定表（与线上公寓的实际分布一致）
func DefaultClassificationTable() ClassificationTable {
	return ClassificationTable{
		GraduateBuildings: []string{"4", "5", "7", "11A", "11B"},
		UndergraduateRooms: []string{
			"4-101", "4-103", "4-105", "4-107", "4-109", "4-111", "4-113", "4-115", "4-117",
			"4-121", "4-123", "4-125", "4-127", "4-129", "4-137", "4-139", "4-141", "4-143",
			"4-201", "4-202", "4-203", "4-204", "4-205", "4-206", "4-207", "4-208", "4-209", "4-210",
			"4-211", "4-212", "4-213", "4-214", "4-215", "4-216", "4-217", "4-218", "4-219", "4-220",
			"4-221", "4-222", "4-223", "4-224", "4-225", "4-227", "4-228",
		},
	}
}
