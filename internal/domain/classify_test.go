package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestClassify_GraduateBuildings 测试研究生楼栋的培养层次判定
func TestClassify_GraduateBuildings(t *testing.T) {
	table := DefaultClassificationTable()

	for _, room := range []string{"4-301", "5-101", "7-888", "11A-305", "11B-101"} {
		require.Equal(t, ProgramGraduate, table.Classify(room), "room %s", room)
	}
}

// TestClassify_UndergraduateBuildings 测试普通楼栋判定为本科
func TestClassify_UndergraduateBuildings(t *testing.T) {
	table := DefaultClassificationTable()

	for _, room := range []string{"1-101", "3-520", "12A-101", "17B-202", "6-101"} {
		require.Equal(t, ProgramUndergraduate, table.Classify(room), "room %s", room)
	}
}

// TestClassify_ExceptionRooms 测试 4 号楼本科例外房间优先于楼栋规则
func TestClassify_ExceptionRooms(t *testing.T) {
	table := DefaultClassificationTable()

	// 例外名单中的房间判定为本科
	require.Equal(t, ProgramUndergraduate, table.Classify("4-101"))
	require.Equal(t, ProgramUndergraduate, table.Classify("4-237"))

	// 同一楼栋但不在名单中的房间仍是研究生
	require.Equal(t, ProgramGraduate, table.Classify("4-999"))
}

// TestClassify_EmptyTable 测试空表时一律判定为本科
func TestClassify_EmptyTable(t *testing.T) {
	var table ClassificationTable
	require.Equal(t, ProgramUndergraduate, table.Classify("4-101"))
	require.Equal(t, ProgramUndergraduate, table.Classify("11A-305"))
}

// TestAbbreviateInstitute 测试学院名称缩写规则
func TestAbbreviateInstitute(t *testing.T) {
	abbr := map[string]string{
		"机械工程学院": "机械",
	}

	// 映射表命中
	require.Equal(t, "机械", AbbreviateInstitute("机械工程学院", abbr))

	// 未命中：前两字 + 后两字
	require.Equal(t, "生物学院", AbbreviateInstitute("生物工程学院", abbr))

	// 长度不足 2 时原样返回
	require.Equal(t, "文", AbbreviateInstitute("文", abbr))
	require.Equal(t, "", AbbreviateInstitute("", abbr))

	// 恰好 2 个字
	require.Equal(t, "外语外语", AbbreviateInstitute("外语", abbr))
}
