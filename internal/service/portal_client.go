package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"curfew-report/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 门禁系统分页查询接口路径
const inoutListPath = "/inout/inout_record/get_inout_list_paged_json"

// 伪装成门禁系统自带前端的请求头，部分部署会校验
const portalUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"

// westCampusThreshold 楼栋编号 >= 15 属于西院楼群
const westCampusThreshold = 15

// pagedResponse 门禁系统分页接口的响应体
type pagedResponse struct {
	Total int                   `json:"total"`
	Rows  []domain.AccessRecord `json:"rows"`
}

// PortalClient 门禁系统数据客户端：按楼栋分页拉取出入记录
type PortalClient struct {
	httpClient *resty.Client
	baseURL    string
	pageSize   int
	groups     PortalGroups
	logger     *zap.Logger

	// now 可注入以便测试时间窗口推导
	now func() time.Time
}

// NewPortalClient 创建门禁系统客户端
// pageSize 与楼群标识来自一次运行的配置快照
func NewPortalClient(baseURL string, pageSize int, groups PortalGroups, logger *zap.Logger) *PortalClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("Accept-Language", "zh-CN,zh;q=0.9").
		SetHeader("Referer", baseURL+"/index").
		SetHeader("User-Agent", portalUserAgent).
		SetHeader("X-Requested-With", "XMLHttpRequest")

	return &PortalClient{
		httpClient: client,
		baseURL:    baseURL,
		pageSize:   pageSize,
		groups:     groups,
		logger:     logger,
		now:        time.Now,
	}
}

// FetchBuilding 拉取一个楼栋在晚归窗口内的全部出入记录
// 窗口为 [昨天+window.StartTime, 今天+window.EndTime]；
// 先发一次 offset=0 的请求探测 total，再按页顺序拉取
func (c *PortalClient) FetchBuilding(ctx context.Context, token string, q domain.BuildingQuery, window domain.QueryWindow) ([]domain.AccessRecord, error) {
	groupID, err := c.groupIDFor(q.Number)
	if err != nil {
		return nil, err
	}

	currentDate := c.now().Format("2006-01-02")
	previousDate := c.now().AddDate(0, 0, -1).Format("2006-01-02")

	params := map[string]string{
		"offset":                   "0",
		"limit":                    strconv.Itoa(c.pageSize),
		"studentTypeSearch":        "",
		"schoolInstituteNameSearch": "",
		"schoolMajorNameSearch":    "",
		"schoolClassNameSearch":    "",
		"gradeSearch":              "",
		"studentType":              "",
		"schoolInstituteName":      "",
		"grade":                    "",
		"schoolClassName":          "",
		"keyWords":                 "",
		"campusId":                 c.groups.CampusID,
		"buildingGroupId":          groupID,
		"buildingId":               q.InternalID,
		"beginTime":                previousDate + " " + window.StartTime,
		"endTime":                  currentDate + " " + window.EndTime,
		"passDirection":            "",
	}

	// 探测 total
	first, err := c.fetchPage(ctx, token, params)
	if err != nil {
		return nil, fmt.Errorf("%w: building %s: %v", domain.ErrFetch, q.Number, err)
	}
	if first.Total == 0 {
		c.logger.Info("building has no records in window",
			zap.String("building", q.Number),
		)
		return []domain.AccessRecord{}, nil
	}

	pageCount := (first.Total + c.pageSize - 1) / c.pageSize
	c.logger.Info("fetching building records",
		zap.String("building", q.Number),
		zap.Int("total", first.Total),
		zap.Int("pages", pageCount),
	)

	allRows := make([]domain.AccessRecord, 0, first.Total)
	for page := 0; page < pageCount; page++ {
		params["offset"] = strconv.Itoa(page * c.pageSize)
		resp, err := c.fetchPage(ctx, token, params)
		if err != nil {
			return nil, fmt.Errorf("%w: building %s page %d: %v", domain.ErrFetch, q.Number, page, err)
		}
		allRows = append(allRows, resp.Rows...)
	}

	c.logger.Info("building fetch complete",
		zap.String("building", q.Number),
		zap.Int("rows", len(allRows)),
	)
	return allRows, nil
}

// fetchPage 发送一次分页请求并解析响应
func (c *PortalClient) fetchPage(ctx context.Context, token string, params map[string]string) (*pagedResponse, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetCookie(&http.Cookie{Name: "sid", Value: token}).
		Get(inoutListPath)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	var page pagedResponse
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		return nil, fmt.Errorf("unparseable page response: %v", err)
	}
	return &page, nil
}

// groupIDFor 根据楼栋编号选择楼群 ID：>= 15 为西院，否则中院
func (c *PortalClient) groupIDFor(number string) (string, error) {
	n, err := strconv.Atoi(number)
	if err != nil {
		return "", fmt.Errorf("%w: building number %q is not numeric", domain.ErrConfiguration, number)
	}
	if n >= westCampusThreshold {
		return c.groups.WestID, nil
	}
	return c.groups.CentralID, nil
}
