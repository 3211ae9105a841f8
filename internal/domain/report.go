package domain

// ReportRow 晚归名单中的一行，由归一化后的 AccessRecord 派生
type ReportRow struct {
	DateLabel    string `json:"dateLabel"`    // "月.日"，不补零
	Institute    string `json:"institute"`    // 学院简称
	UserID       string `json:"userId"`       // 学号
	UserName     string `json:"userName"`     // 姓名
	RoomLabel    string `json:"roomLabel"`    // "<楼栋>-<宿舍>"
	Grade        string `json:"grade"`        // 年级
	ProgramLevel string `json:"programLevel"` // 培养层次："研究生" / "本科"
	TimeLabel    string `json:"timeLabel"`    // HH:MM
}

// ReportHeader 报表表头，列顺序固定
var ReportHeader = []string{"日期", "学院", "学号", "姓名", "宿舍号", "年级", "培养层次", "晚归时间"}

// AbbreviateInstitute 计算学院简称
// 命中映射表时使用映射值，否则取全称的前两个和后两个字符拼接；
// 全称不足两个字符时原样返回
func AbbreviateInstitute(name string, abbrMap map[string]string) string {
	if abbr, ok := abbrMap[name]; ok {
		return abbr
	}
	runes := []rune(name)
	if len(runes) < 2 {
		return name
	}
	return string(runes[0:2]) + string(runes[len(runes)-2:])
}
