package domain

// User 系统操作员
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"` // 口令，仅在仓储层比对时使用
	Role     string `json:"role"` // "admin" / "user"
	Enabled  bool   `json:"enabled"`

	// AllowedBuildings 可操作楼栋编号列表；空列表表示全部可操作
	AllowedBuildings []string `json:"allowedBuildings"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// CanQueryBuilding 判断用户是否可查询指定楼栋
func (u *User) CanQueryBuilding(number string) bool {
	if len(u.AllowedBuildings) == 0 {
		return true
	}
	for _, b := range u.AllowedBuildings {
		if b == number {
			return true
		}
	}
	return false
}
