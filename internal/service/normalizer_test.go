package service

import (
	"encoding/json"
	"testing"

	"curfew-report/internal/domain"

	"github.com/stretchr/testify/require"
)

func record(userID, room, passTime string) domain.AccessRecord {
	return domain.AccessRecord{
		UserID:       json.Number(userID),
		UserName:     "学生" + userID,
		RoomName:     room,
		PassTimeText: passTime,
	}
}

// TestNormalizeRecords_DedupKeepsLatest 测试同一学号只保留最近一次记录
func TestNormalizeRecords_DedupKeepsLatest(t *testing.T) {
	records := []domain.AccessRecord{
		record("1001", "101", "2025-09-19 23:45:00"),
		record("1002", "102", "2025-09-19 23:50:00"),
		record("1001", "101", "2025-09-20 00:10:00"),
	}

	got := NormalizeRecords(records, "11A")

	require.Len(t, got, 2)
	require.Equal(t, "1001", got[0].UserID.String())
	require.Equal(t, "2025-09-20 00:10:00", got[0].PassTimeText)
	require.Equal(t, "1002", got[1].UserID.String())
}

// TestNormalizeRecords_TieKeepsFirst 测试相同通行时间保留先拉取到的记录
func TestNormalizeRecords_TieKeepsFirst(t *testing.T) {
	first := record("1001", "101", "2025-09-20 00:10:00")
	first.UserName = "第一条"
	second := record("1001", "101", "2025-09-20 00:10:00")
	second.UserName = "第二条"

	got := NormalizeRecords([]domain.AccessRecord{first, second}, "4")

	require.Len(t, got, 1)
	require.Equal(t, "第一条", got[0].UserName)
}

// TestNormalizeRecords_RoomRelabel 测试宿舍号加楼栋标签前缀
func TestNormalizeRecords_RoomRelabel(t *testing.T) {
	got := NormalizeRecords([]domain.AccessRecord{
		record("1001", "305", "2025-09-20 00:10:00"),
	}, "11A")

	require.Len(t, got, 1)
	require.Equal(t, "11A-305", got[0].RoomName)
}

// TestNormalizeRecords_Empty 测试空输入返回空结果
func TestNormalizeRecords_Empty(t *testing.T) {
	got := NormalizeRecords(nil, "4")
	require.Empty(t, got)
}

// TestNormalizeRecords_PreservesFirstSeenOrder 测试输出顺序为学号首次出现顺序
func TestNormalizeRecords_PreservesFirstSeenOrder(t *testing.T) {
	records := []domain.AccessRecord{
		record("3", "101", "2025-09-19 23:30:00"),
		record("1", "102", "2025-09-19 23:40:00"),
		record("2", "103", "2025-09-19 23:50:00"),
		record("3", "101", "2025-09-20 01:00:00"),
	}

	got := NormalizeRecords(records, "5")

	require.Len(t, got, 3)
	require.Equal(t, "3", got[0].UserID.String())
	require.Equal(t, "1", got[1].UserID.String())
	require.Equal(t, "2", got[2].UserID.String())
}
