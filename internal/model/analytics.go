package model

import (
	"time"
)

// DashboardStats are point-in-time program counts
type DashboardStats struct {
	TotalPatients    int `json:"total_patients" db:"total_patients"`
	AbnormalReadings int `json:"abnormal_readings" db:"abnormal_readings"`
	PendingCalls     int `json:"pending_calls" db:"pending_calls"`
	TodayReadings    int `json:"today_readings" db:"today_readings"`
}

// CommunicationStat is the slice of a communication log the analytics need
type CommunicationStat struct {
	Type      CommunicationType     `db:"type"`
	Outcome   *CommunicationOutcome `db:"outcome"`
	UserName  string                `db:"user_name"`
	CreatedAt time.Time             `db:"created_at"`
}

// DailyCount is one point of the daily communication trend
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CommunicationAnalytics aggregates communication logs over a period
type CommunicationAnalytics struct {
	Period              string         `json:"period"`
	Since               time.Time      `json:"since"`
	TotalCommunications int            `json:"total_communications"`
	ByType              map[string]int `json:"by_type"`
	ByOutcome           map[string]int `json:"by_outcome"`
	ByDay               map[string]int `json:"by_day"`
	ResponseRate        int            `json:"response_rate"`
	TopStaff            map[string]int `json:"top_staff"`
	DailyTrend          []DailyCount   `json:"daily_trend"`
}
