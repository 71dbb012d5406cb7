package dto

import "time"

type DashboardDTO struct {
	TotalApplications   int                      `json:"total_applications"`
	TodayApplications   int                      `json:"today_applications"`
	PendingApplications int                      `json:"pending_applications"`
	UrgentApplications  int                      `json:"urgent_applications"`
	RecentApplications  []ApplicationResponseDTO `json:"recent_applications"`
	GeneratedAt         time.Time                `json:"generated_at"`
}
