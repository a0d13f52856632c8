package types

// Region is a delivery region as reported by the delivery provider.
type Region struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// City is a delivery city within a region.
type City struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}
