package models

// DashboardSummary aggregates the landlord's portfolio for the dashboard.
// MonthlyRevenue sums billing records generated for the current calendar
// month; OccupancyRate is activeContracts/totalRooms*100 rounded to the
// nearest integer, 0 when there are no rooms.
type DashboardSummary struct {
	TotalRooms      int     `json:"totalRooms"`
	ActiveContracts int     `json:"activeContracts"`
	MonthlyRevenue  float64 `json:"monthlyRevenue"`
	OccupancyRate   int     `json:"occupancyRate"`
}
