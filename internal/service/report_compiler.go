package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"curfew-report/internal/domain"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Excel 对 sheet 名称的硬限制
const maxSheetNameRunes = 31

// reportFileFormat 报表文件名，括号内为查询日期区间
const reportFileFormat = "公寓学生晚归名单(%s).xlsx"

// ReportCompiler 把归一化后的记录编排成带样式的 xlsx 报表
type ReportCompiler struct {
	resultsRoot string
	logger      *zap.Logger
}

// NewReportCompiler 创建报表编排器
// resultsRoot 为输出根目录，每个操作员一个子目录
func NewReportCompiler(resultsRoot string, logger *zap.Logger) *ReportCompiler {
	return &ReportCompiler{resultsRoot: resultsRoot, logger: logger}
}

// Compile 编排并落盘报表，返回产物路径
// groups 为空时返回 domain.ErrNoRecords（正常的空结果，不写文件）；
// 有楼栋但无记录时仍生成只含表头的报表。
// 同路径旧文件会被替换：先写临时文件再原子改名，避免并发运行读到半截文件
func (c *ReportCompiler) Compile(groups []domain.BuildingRecords, rc *RunConfig, operator string, window domain.QueryWindow) (string, error) {
	if len(groups) == 0 {
		c.logger.Debug("compile skipped: no building groups")
		return "", domain.ErrNoRecords
	}

	rows, err := c.buildRows(groups, rc)
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := sheetTitle(groups)
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return "", fmt.Errorf("failed to name sheet: %w", err)
	}

	for col, title := range domain.ReportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return "", fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
	}

	for i, row := range rows {
		values := []string{
			row.DateLabel, row.Institute, row.UserID, row.UserName,
			row.RoomLabel, row.Grade, row.ProgramLevel, row.TimeLabel,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return "", fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return "", fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := c.applyStyle(f, sheetName, rows); err != nil {
		return "", err
	}

	artifactPath, err := c.artifactPath(operator, window)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(artifactPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create results dir: %w", err)
	}

	// 先写临时文件再改名；改名会覆盖同名旧报表
	tmpPath := artifactPath + ".tmp"
	if err := f.SaveAs(tmpPath); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	if err := os.Rename(tmpPath, artifactPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to replace report file: %w", err)
	}

	c.logger.Info("report compiled",
		zap.String("path", artifactPath),
		zap.Int("rows", len(rows)),
		zap.String("sheet", sheetName),
	)
	return artifactPath, nil
}

// buildRows 拍平所有楼栋的记录，派生报表行并排序
// 排序键：(学院简称, passTimeText) 升序
func (c *ReportCompiler) buildRows(groups []domain.BuildingRecords, rc *RunConfig) ([]domain.ReportRow, error) {
	type sortableRow struct {
		row      domain.ReportRow
		passTime string
	}

	all := make([]sortableRow, 0)
	for _, group := range groups {
		for _, record := range group.Records {
			row, err := deriveRow(record, rc)
			if err != nil {
				return nil, err
			}
			all = append(all, sortableRow{row: row, passTime: record.PassTimeText})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].row.Institute != all[j].row.Institute {
			return all[i].row.Institute < all[j].row.Institute
		}
		return all[i].passTime < all[j].passTime
	})

	rows := make([]domain.ReportRow, 0, len(all))
	for _, s := range all {
		rows = append(rows, s.row)
	}
	return rows, nil
}

// deriveRow 由一条归一化记录派生一行报表
// passTimeText 必须是 YYYY-MM-DD HH:MM:SS；格式不符视为本次运行的致命错误
func deriveRow(record domain.AccessRecord, rc *RunConfig) (domain.ReportRow, error) {
	passTime, err := time.Parse("2006-01-02 15:04:05", record.PassTimeText)
	if err != nil {
		return domain.ReportRow{}, fmt.Errorf("%w: %q", domain.ErrRowFormat, record.PassTimeText)
	}

	return domain.ReportRow{
		DateLabel:    fmt.Sprintf("%d.%d", int(passTime.Month()), passTime.Day()),
		Institute:    domain.AbbreviateInstitute(record.SchoolInstituteName, rc.InstituteAbbr),
		UserID:       record.UserID.String(),
		UserName:     record.UserName,
		RoomLabel:    record.RoomName,
		Grade:        record.Grade.String(),
		ProgramLevel: rc.Classify.Classify(record.RoomName),
		// 固定偏移截取 HH:MM，上面的 time.Parse 已保证长度
		TimeLabel: record.PassTimeText[11:16],
	}, nil
}

// applyStyle 所有单元格水平垂直居中 + 细边框，列宽按内容自适应
func (c *ReportCompiler) applyStyle(f *excelize.File, sheetName string, rows []domain.ReportRow) error {
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create cell style: %w", err)
	}

	lastCell, err := excelize.CoordinatesToCellName(len(domain.ReportHeader), len(rows)+1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCell, style); err != nil {
		return fmt.Errorf("failed to apply cell style: %w", err)
	}

	// 列宽 = (该列最长内容字符数 + 2) * 2
	for col := 0; col < len(domain.ReportHeader); col++ {
		maxLen := len([]rune(domain.ReportHeader[col]))
		for _, row := range rows {
			values := []string{
				row.DateLabel, row.Institute, row.UserID, row.UserName,
				row.RoomLabel, row.Grade, row.ProgramLevel, row.TimeLabel,
			}
			if l := len([]rune(values[col])); l > maxLen {
				maxLen = l
			}
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, float64((maxLen+2)*2)); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}

// sheetTitle 生成 sheet 名称：楼栋标签用 "-" 连接；
// 超过 31 字符时用 "<首>至<末>栋(<数量>栋)"，仍超长则截断
func sheetTitle(groups []domain.BuildingRecords) string {
	labels := make([]string, 0, len(groups))
	for _, g := range groups {
		labels = append(labels, g.Label)
	}

	title := strings.Join(labels, "-")
	if len([]rune(title)) <= maxSheetNameRunes {
		return title
	}

	title = fmt.Sprintf("%s至%s栋(%d栋)", labels[0], labels[len(labels)-1], len(labels))
	if runes := []rune(title); len(runes) > maxSheetNameRunes {
		title = string(runes[:maxSheetNameRunes])
	}
	return title
}

// artifactPath 推导报表落盘路径
// 括号内日期区间来自显式的 StartDate/EndDate，缺省为 昨天-今天
func (c *ReportCompiler) artifactPath(operator string, window domain.QueryWindow) (string, error) {
	var dateRange string
	if window.StartDate != "" && window.EndDate != "" {
		start, err := time.Parse("2006-01-02", window.StartDate)
		if err != nil {
			return "", fmt.Errorf("%w: bad start date %q", domain.ErrConfiguration, window.StartDate)
		}
		end, err := time.Parse("2006-01-02", window.EndDate)
		if err != nil {
			return "", fmt.Errorf("%w: bad end date %q", domain.ErrConfiguration, window.EndDate)
		}
		dateRange = fmt.Sprintf("%d.%d-%d.%d", int(start.Month()), start.Day(), int(end.Month()), end.Day())
	} else {
		now := time.Now()
		yesterday := now.AddDate(0, 0, -1)
		dateRange = fmt.Sprintf("%d.%d-%d.%d", int(yesterday.Month()), yesterday.Day(), int(now.Month()), now.Day())
	}

	fileName := fmt.Sprintf(reportFileFormat, dateRange)
	return filepath.Join(c.resultsRoot, operator, fileName), nil
}
