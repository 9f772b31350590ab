// Package portfolio maintains the public, read-optimized view of each
// student's approved content.
package portfolio

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
)

// Item is one approved piece of content on a public portfolio.
type Item struct {
	ContentType model.ContentType `json:"contentType"`
	ContentID   string            `json:"contentId"`
	RequestID   uuid.UUID         `json:"requestId"`
	Title       string            `json:"title"`
	Summary     string            `json:"summary,omitempty"`
	Score       *float64          `json:"score,omitempty"`
	Payload     datatypes.JSON    `json:"payload,omitempty"`
	ApprovedAt  time.Time         `json:"approvedAt"`
}

// Stats are derived from the item list on every write.
type Stats struct {
	Counts       map[model.ContentType]int `json:"counts"`
	Total        int                       `json:"total"`
	MarksCount   int                       `json:"marksCount"`
	AverageMarks *float64                  `json:"averageMarks,omitempty"`
}

// PublicPortfolio is the projection of a student's approved content.
type PublicPortfolio struct {
	StudentID   string                    `gorm:"type:varchar(100);column:student_id;primaryKey" json:"studentId"`
	Items       []Item                    `gorm:"type:jsonb;column:items;not null;serializer:json" json:"items"` // One entry per approved (contentType, contentId)
	Stats       datatypes.JSONType[Stats] `gorm:"column:stats" json:"stats"`                                     // Recomputed from Items
	LastUpdated time.Time                 `gorm:"column:last_updated;not null" json:"lastUpdated"`
	Version     int                       `gorm:"column:version;not null;default:1" json:"version"` // Optimistic concurrency counter
	CreatedAt   time.Time                 `gorm:"column:created_at" json:"createdAt"`
}

func (p *PublicPortfolio) TableName() string {
	return "public_portfolios"
}

// SnapshotKey is the object storage key of the student's published snapshot.
func SnapshotKey(studentID string) string {
	return "portfolios/" + studentID + ".json"
}

// upsertItem replaces the entry with the same content identity or appends a new one.
func (p *PublicPortfolio) upsertItem(item Item) {
	for i := range p.Items {
		if p.Items[i].ContentType == item.ContentType && p.Items[i].ContentID == item.ContentID {
			p.Items[i] = item
			return
		}
	}
	p.Items = append(p.Items, item)
}

func computeStats(items []Item) Stats {
	stats := Stats{Counts: make(map[model.ContentType]int, len(model.ContentTypes))}
	for _, ct := range model.ContentTypes {
		stats.Counts[ct] = 0
	}

	var marksSum float64
	for _, it := range items {
		stats.Counts[it.ContentType]++
		stats.Total++
		if it.ContentType == model.ContentTypeMarks && it.Score != nil {
			marksSum += *it.Score
			stats.MarksCount++
		}
	}
	if stats.MarksCount > 0 {
		avg := marksSum / float64(stats.MarksCount)
		stats.AverageMarks = &avg
	}
	return stats
}
