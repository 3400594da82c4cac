package models

// ProductQuery is the query string of GET /api/v1/data/:product. Only the
// span matching the product's window is used; zero means the product default.
type ProductQuery struct {
	Country    string `form:"country"`
	From       string `form:"from"`
	To         string `form:"to"`
	HoursBack  int    `form:"hours_back" binding:"omitempty,min=1"`
	DaysBack   int    `form:"days_back" binding:"omitempty,min=1"`
	HoursAhead int    `form:"hours_ahead" binding:"omitempty,min=1"`
	DaysAhead  int    `form:"days_ahead" binding:"omitempty,min=1"`
	Format     string `form:"format" binding:"omitempty,oneof=json csv"`
}

type OverviewQuery struct {
	Country   string `form:"country" binding:"required"`
	HoursBack int    `form:"hours_back" binding:"omitempty,min=1"`
}

// CompareQuery takes comma-separated country codes.
type CompareQuery struct {
	Countries string `form:"countries" binding:"required"`
	HoursBack int    `form:"hours_back" binding:"omitempty,min=1"`
}

// FlowAnalysisQuery takes comma-separated pairs such as "DE-FR,FR-ES".
type FlowAnalysisQuery struct {
	Pairs     string `form:"pairs" binding:"required"`
	HoursBack int    `form:"hours_back" binding:"omitempty,min=1"`
}

type RenewablesQuery struct {
	Country    string `form:"country" binding:"required"`
	HoursAhead int    `form:"hours_ahead" binding:"omitempty,min=1"`
}

type InsightsQuery struct {
	Countries string `form:"countries"`
	HoursBack int    `form:"hours_back" binding:"omitempty,min=1"`
}

type DebugQuery struct {
	Country   string `form:"country" binding:"required"`
	DataType  string `form:"data_type"`
	ToCountry string `form:"to_country"`
}
