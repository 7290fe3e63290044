package api

// 文档注释：查询返回结构（对外）
// 背景：统一对外序列化模型，仅包含必要字段；便于缓存与统计一致化处理。
// 约束：字段稳定；新增字段需评估兼容性与前端依赖。
type containsResult struct {
	Lng       float64 `json:"lng"`
	Lat       float64 `json:"lat"`
	Contained bool    `json:"contained"`
	Region    string  `json:"region,omitempty"`
}

type locateResult struct {
	IP        string  `json:"ip"`
	Found     bool    `json:"found"`
	Lng       float64 `json:"lng,omitempty"`
	Lat       float64 `json:"lat,omitempty"`
	Contained bool    `json:"contained"`
	Region    string  `json:"region,omitempty"`
}

type whereamiResult struct {
	IP        string  `json:"ip"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Lng       float64 `json:"lng,omitempty"`
	Lat       float64 `json:"lat,omitempty"`
	Contained bool    `json:"contained"`
	Region    string  `json:"region,omitempty"`
}
