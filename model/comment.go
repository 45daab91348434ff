package model

import "time"

// Comment is a timestamped comment anchored to a position in a track.
// Comments are immutable after insertion.
type Comment struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TrackID      string    `json:"trackId" gorm:"type:varchar(36);index;not null"`
	UserID       int64     `json:"userId" gorm:"not null"`
	Username     string    `json:"username" gorm:"type:varchar(100);not null"`
	AvatarURL    string    `json:"avatarUrl" gorm:"type:varchar(767)"`
	Text         string    `json:"text" gorm:"type:text;not null"`
	AnchorOffset float64   `json:"anchorOffset" gorm:"not null;default:0"` // Seconds into the track
	Likes        int       `json:"likes" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName 指定评论表名
func (Comment) TableName() string {
	return "comments"
}
