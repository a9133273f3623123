package model

// Plan 套餐目录中的一项，不可变
type Plan struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Capacity string  `json:"capacity"`
}
