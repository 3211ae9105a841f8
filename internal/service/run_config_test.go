package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestLoadRunConfig_Defaults 测试缺省配置下的快照
func TestLoadRunConfig_Defaults(t *testing.T) {
	repo := &fakeConfigRepo{values: map[string]string{}}

	rc, err := LoadRunConfig(context.Background(), repo, zap.NewNop())
	require.NoError(t, err)

	require.Empty(t, rc.Username)
	require.Equal(t, 20, rc.PageSize)
	require.Equal(t, "23:20:00", rc.BeginTime)
	require.Equal(t, "05:30:00", rc.EndTime)
	require.Equal(t, defaultGroupCentral, rc.Groups.CentralID)
	require.Equal(t, defaultGroupWest, rc.Groups.WestID)
	require.Equal(t, defaultCampusID, rc.Groups.CampusID)

	// 默认楼栋标签映射生效
	require.Equal(t, "11A", rc.LabelFor("11"))
	require.Equal(t, "17B", rc.LabelFor("20"))
	require.Equal(t, "4", rc.LabelFor("4"))
}

// TestLoadRunConfig_Overrides 测试配置覆盖默认值
func TestLoadRunConfig_Overrides(t *testing.T) {
	repo := &fakeConfigRepo{values: map[string]string{
		"tust_username": "admin",
		"tust_password": "secret",
		"pagesize":      "50",
		"bid_dict":      `{"4":"bid-4"}`,
		"label_dict":    `{"4":"四号楼"}`,
		"data_cfg":      `{"机械工程学院":"机械"}`,
		"begin_time":    "23:00:00",
		"classify_cfg":  `{"graduateBuildings":["6"],"undergraduateRooms":[]}`,
	}}

	rc, err := LoadRunConfig(context.Background(), repo, zap.NewNop())
	require.NoError(t, err)

	require.Equal(t, "admin", rc.Username)
	require.Equal(t, 50, rc.PageSize)
	require.Equal(t, "bid-4", rc.BuildingIDs["4"])
	require.Equal(t, "四号楼", rc.LabelFor("4"))
	require.Equal(t, "机械", rc.InstituteAbbr["机械工程学院"])
	require.Equal(t, "23:00:00", rc.BeginTime)

	// 自定义分类表替换默认表
	require.Equal(t, "研究生", rc.Classify.Classify("6-101"))
	require.Equal(t, "本科", rc.Classify.Classify("4-999"))
}

// TestLoadRunConfig_BadJSON 测试 JSON 配置损坏时降级而不失败
func TestLoadRunConfig_BadJSON(t *testing.T) {
	repo := &fakeConfigRepo{values: map[string]string{
		"bid_dict":     `{not json`,
		"classify_cfg": `{not json`,
	}}

	rc, err := LoadRunConfig(context.Background(), repo, zap.NewNop())
	require.NoError(t, err)
	require.Empty(t, rc.BuildingIDs)
	// 分类表回退到默认
	require.Equal(t, "研究生", rc.Classify.Classify("4-999"))
}

// TestLoadRunConfig_InvalidPageSize 测试非法页大小回退默认值
func TestLoadRunConfig_InvalidPageSize(t *testing.T) {
	repo := &fakeConfigRepo{values: map[string]string{"pagesize": "-3"}}

	rc, err := LoadRunConfig(context.Background(), repo, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 20, rc.PageSize)
}
